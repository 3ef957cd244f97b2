package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	require.NotNil(t, km)
}

func TestDefaultKeyMap_Bindings(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name    string
		binding key.Binding
		keys    []string
	}{
		{"quit", km.Quit, []string{"esc", "ctrl+c"}},
		{"ask", km.Ask, []string{"enter"}},
		{"scroll up", km.ScrollUp, []string{"pgup", "ctrl+u"}},
		{"scroll down", km.ScrollDown, []string{"pgdown", "ctrl+d"}},
		{"clear", km.Clear, []string{"ctrl+l"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.keys, tt.binding.Keys())
			assert.NotEmpty(t, tt.binding.Help().Desc)
		})
	}
}

func TestDefaultKeyMap_NoPrintableKeys(t *testing.T) {
	km := DefaultKeyMap()

	for _, b := range []key.Binding{km.Quit, km.Ask, km.ScrollUp, km.ScrollDown, km.Clear} {
		for _, k := range b.Keys() {
			assert.Greater(t, len(k), 1, "single-character key %q would steal input", k)
		}
	}
}

func TestKeyMap_ShortHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.ShortHelp()

	require.Len(t, help, 3)
	assert.Equal(t, "ask", help[0].Help().Desc)
}

func TestKeyMap_BusyHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.BusyHelp()

	require.Len(t, help, 1)
	assert.Equal(t, "quit", help[0].Help().Desc)
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches("enter", km.Ask))
	assert.True(t, Matches("ctrl+c", km.Quit))
	assert.False(t, Matches("q", km.Quit))
	assert.False(t, Matches("x", km.Ask))
}

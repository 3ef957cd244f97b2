package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegexDetector(t *testing.T) {
	t.Run("requires capture group", func(t *testing.T) {
		_, err := NewRegexDetector("bad", `\n`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "capture group")
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := NewRegexDetector("bad", `(`)
		assert.Error(t, err)
	})

	t.Run("valid pattern", func(t *testing.T) {
		d, err := NewRegexDetector("ok", `(\n)`)
		require.NoError(t, err)
		assert.Equal(t, "ok", d.Name())
		assert.Equal(t, `(\n)`, d.Pattern())
	})
}

func TestLineMarkerDetector(t *testing.T) {
	d := LineMarkerDetector()

	tests := []struct {
		name  string
		text  string
		spans []Span
	}{
		{"numbered", "a\n1. b", []Span{{1, 2}}},
		{"word enumeration", "a\n  b. c", []Span{{1, 4}}},
		{"bullet", "a\n• b", []Span{{1, 2}}},
		{"dash", "a\n- b", []Span{{1, 2}}},
		{"accented word enumeration", "a\nÉtat. b", []Span{{1, 2}}},
		{"non-latin numbering", "a\n٣. b", []Span{{1, 2}}},
		{"plain line", "a\nplain words", nil},
		{"marker at start of text", "1. first", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := d.Boundaries(tt.text)
			if tt.spans == nil {
				assert.Empty(t, spans)
				return
			}
			assert.Equal(t, tt.spans, spans)
		})
	}
}

func TestInlineEnumerationDetector(t *testing.T) {
	d := InlineEnumerationDetector()

	spans := d.Boundaries("1. Dental. 2. Vision; 3. Hearing")
	require.Len(t, spans, 2)
	assert.Equal(t, Span{Start: 10, End: 11}, spans[0])
	assert.Equal(t, Span{Start: 21, End: 22}, spans[1])

	assert.Empty(t, d.Boundaries("Premium is 5.00 per month. Paid yearly."))

	spans = d.Boundaries("Dental. ٢. Vision")
	require.Len(t, spans, 1)
	assert.Equal(t, Span{Start: 7, End: 8}, spans[0])
}

func TestCompositeDetector(t *testing.T) {
	a := &fixedDetector{name: "a", spans: []Span{{5, 7}, {20, 21}}}
	b := &fixedDetector{name: "b", spans: []Span{{6, 8}, {10, 12}}}

	c := NewCompositeDetector(a, b)

	assert.Equal(t, "composite(a,b)", c.Name())
	assert.Equal(t, []Span{{5, 7}, {10, 12}, {20, 21}}, c.Boundaries("ignored"))
}

func TestCompositeDetector_PrefersWiderSpanAtSameStart(t *testing.T) {
	a := &fixedDetector{name: "a", spans: []Span{{3, 4}}}
	b := &fixedDetector{name: "b", spans: []Span{{3, 6}}}

	assert.Equal(t, []Span{{3, 6}}, NewCompositeDetector(a, b).Boundaries(""))
}

type fixedDetector struct {
	name  string
	spans []Span
}

func (f *fixedDetector) Name() string               { return f.name }
func (f *fixedDetector) Boundaries(_ string) []Span { return f.spans }

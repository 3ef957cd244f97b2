package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_Validate(t *testing.T) {
	t.Run("scalars are accepted", func(t *testing.T) {
		m := Metadata{
			"s":   "text",
			"b":   true,
			"i":   1,
			"i64": int64(2),
			"f32": float32(1.5),
			"f64": 2.5,
		}
		assert.NoError(t, m.Validate())
	})

	t.Run("nil map is valid", func(t *testing.T) {
		var m Metadata
		assert.NoError(t, m.Validate())
	})

	t.Run("nested values are rejected", func(t *testing.T) {
		tests := []struct {
			name  string
			value any
		}{
			{"map", map[string]any{"a": 1}},
			{"slice", []string{"a"}},
			{"nil", nil},
			{"struct", struct{}{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := Metadata{"k": tt.value}.Validate()
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				assert.Contains(t, err.Error(), `"k"`)
			})
		}
	})
}

func TestMetadata_Clone(t *testing.T) {
	src := Metadata{"section_number": 1}
	dst := src.Clone()
	dst["section_number"] = 2

	assert.Equal(t, 1, src["section_number"])
	assert.Nil(t, Metadata(nil).Clone())
}

func TestMetadata_Int(t *testing.T) {
	m := Metadata{
		"int":     3,
		"int64":   int64(4),
		"float64": float64(5),
		"float32": float32(6),
		"string":  "7",
	}

	for key, want := range map[string]int{"int": 3, "int64": 4, "float64": 5, "float32": 6} {
		got, ok := m.Int(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	_, ok := m.Int("string")
	assert.False(t, ok)
	_, ok = m.Int("missing")
	assert.False(t, ok)
}

func TestEntryFromChunk(t *testing.T) {
	c := Chunk{
		ID:            "section_0",
		Text:          "1. Coverage includes dental.",
		SequenceIndex: 0,
		Metadata:      Metadata{"section_number": 0},
	}
	vec := []float32{1, 0}

	entry := EntryFromChunk(c, vec)

	assert.Equal(t, "section_0", entry.ID)
	assert.Equal(t, c.Text, entry.Text)
	assert.Equal(t, vec, entry.Vector)
	assert.Equal(t, 0, entry.Metadata["section_number"])

	entry.Metadata["section_number"] = 9
	assert.Equal(t, 0, c.Metadata["section_number"], "entry metadata must not alias the chunk")
}

func TestQueryAnswer_Failed(t *testing.T) {
	assert.False(t, QueryAnswer{Answer: "yes"}.Failed())
	assert.True(t, QueryAnswer{Err: ErrGenerationService}.Failed())
}

package chunker

import (
	"fmt"
	"regexp"
	"sort"
)

// Span is the separator between two segments.
// text[Start:End] belongs to neither segment; the next segment begins at End.
type Span struct {
	Start int
	End   int
}

// BoundaryDetector finds where a new clause or section starts.
// Implementations return spans in ascending order without overlaps.
type BoundaryDetector interface {
	// Name identifies the detection strategy.
	Name() string

	// Boundaries returns the separators found in text.
	Boundaries(text string) []Span
}

// Built-in boundary patterns. The first capture group is the separator.
const (
	// LineMarkerPattern matches a line break (plus any whitespace) before a
	// numbered item, a word enumeration, a bullet or a dash. Letters and
	// digits are matched in any script.
	LineMarkerPattern = `(\n\s*)(?:\p{Nd}+\.|[\p{L}\p{N}_]+\.|•|-)`

	// InlineEnumerationPattern matches the gap between a sentence terminator
	// and a following "N. " marker on the same line.
	InlineEnumerationPattern = `[.;:]([ \t]+)\p{Nd}+\.\s`
)

// RegexDetector splits on a regular expression whose first capture group
// is the separator. Text after the group starts the next segment, so the
// marker itself stays with the following chunk.
type RegexDetector struct {
	name string
	re   *regexp.Regexp
}

// NewRegexDetector compiles pattern. The pattern must have at least one capture group.
func NewRegexDetector(name, pattern string) (*RegexDetector, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile boundary pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("boundary pattern %q needs a capture group marking the separator", pattern)
	}
	return &RegexDetector{name: name, re: re}, nil
}

func mustRegexDetector(name, pattern string) *RegexDetector {
	d, err := NewRegexDetector(name, pattern)
	if err != nil {
		panic(err)
	}
	return d
}

// LineMarkerDetector detects list markers at the start of a line.
func LineMarkerDetector() *RegexDetector {
	return mustRegexDetector("line", LineMarkerPattern)
}

// InlineEnumerationDetector detects "N." markers following a sentence on the same line.
func InlineEnumerationDetector() *RegexDetector {
	return mustRegexDetector("inline", InlineEnumerationPattern)
}

// Name returns the detector name.
func (d *RegexDetector) Name() string {
	return d.name
}

// Pattern returns the source regular expression.
func (d *RegexDetector) Pattern() string {
	return d.re.String()
}

// Boundaries returns the separator span of every match.
func (d *RegexDetector) Boundaries(text string) []Span {
	matches := d.re.FindAllStringSubmatchIndex(text, -1)
	spans := make([]Span, 0, len(matches))
	for _, m := range matches {
		if m[2] < 0 {
			continue // separator group did not participate
		}
		spans = append(spans, Span{Start: m[2], End: m[3]})
	}
	return spans
}

// CompositeDetector merges the spans of several detectors.
// When spans overlap, the one starting first wins.
type CompositeDetector struct {
	detectors []BoundaryDetector
}

// NewCompositeDetector combines detectors.
func NewCompositeDetector(detectors ...BoundaryDetector) *CompositeDetector {
	return &CompositeDetector{detectors: detectors}
}

// DefaultDetector detects line-start markers and inline numbered clauses.
func DefaultDetector() *CompositeDetector {
	return NewCompositeDetector(LineMarkerDetector(), InlineEnumerationDetector())
}

// Name returns the detector name.
func (c *CompositeDetector) Name() string {
	name := "composite("
	for i, d := range c.detectors {
		if i > 0 {
			name += ","
		}
		name += d.Name()
	}
	return name + ")"
}

// Boundaries returns the merged, non-overlapping spans in ascending order.
func (c *CompositeDetector) Boundaries(text string) []Span {
	var all []Span
	for _, d := range c.detectors {
		all = append(all, d.Boundaries(text)...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End > all[j].End
	})

	merged := make([]Span, 0, len(all))
	last := -1
	for _, sp := range all {
		if sp.Start < last {
			continue
		}
		merged = append(merged, sp)
		last = sp.End
	}
	return merged
}

// Package layout lays out printable billing documents (receipts and
// invoices) on fixed-size pages. The wrapping primitives are pure functions
// over a caller-supplied measurement callback so the algorithms stay
// testable without a rendering backend.
package layout

// Style selects how a wrapped segment is drawn.
type Style int

const (
	// StylePlain is regular body text.
	StylePlain Style = iota
	// StyleEmphasis is bold text with an underline beneath its measured width.
	StyleEmphasis
)

// Segment is a run of same-styled text within one wrapped line.
type Segment struct {
	Text  string
	Style Style
}

// Span marks an underline relative to the start of its line.
type Span struct {
	Offset float64
	Width  float64
}

// Line is one wrapped output line: its ordered segments and the underline
// spans to draw beneath the emphasized runs.
type Line struct {
	Segments   []Segment
	Underlines []Span
}

// MeasureFunc returns the rendered width of a string in page units when
// drawn in the given style. Bold runs are wider than plain ones, so break
// points and underline spans are both computed per style.
type MeasureFunc func(text string, style Style) float64

// Wrap lays out the logical sentence before+emphasized+after into lines of
// at most maxWidth. Break points come from whole-word wrapping over the
// concatenated text; within each line, characters are allocated left to
// right to whatever remains of before, then emphasized, then after, so the
// emphasized run keeps its position and style wherever the breaks land.
// Words wider than maxWidth are split at character granularity.
func Wrap(before, emphasized, after string, maxWidth float64, measure MeasureFunc) []Line {
	full := []rune(before + emphasized + after)
	emphStart := len([]rune(before))
	emphEnd := emphStart + len([]rune(emphasized))

	// Width of a rune range, splitting it at the style boundaries so each
	// piece is measured in the style it will be drawn with.
	width := func(start, end int) float64 {
		total := 0.0
		if s, e := start, min(end, emphStart); e > s {
			total += measure(string(full[s:e]), StylePlain)
		}
		if s, e := max(start, emphStart), min(end, emphEnd); e > s {
			total += measure(string(full[s:e]), StyleEmphasis)
		}
		if s, e := max(start, emphEnd), end; e > s {
			total += measure(string(full[s:e]), StylePlain)
		}
		return total
	}

	ranges := breakRanges(full, maxWidth, width)
	lines := make([]Line, 0, len(ranges))
	for _, rng := range ranges {
		line := Line{}
		cursor := 0.0
		appendRun := func(start, end int, style Style) {
			if end <= start {
				return
			}
			text := string(full[start:end])
			width := measure(text, style)
			line.Segments = append(line.Segments, Segment{Text: text, Style: style})
			if style == StyleEmphasis {
				line.Underlines = append(line.Underlines, Span{Offset: cursor, Width: width})
			}
			cursor += width
		}
		appendRun(rng.start, min(rng.end, emphStart), StylePlain)
		appendRun(max(rng.start, emphStart), min(rng.end, emphEnd), StyleEmphasis)
		appendRun(max(rng.start, emphEnd), rng.end, StylePlain)
		lines = append(lines, line)
	}
	return lines
}

// WrapPlain wraps single-style text and returns the resulting lines. The
// line count drives vertical cursor advancement in the templates.
func WrapPlain(text string, maxWidth float64, measure MeasureFunc) []string {
	runes := []rune(text)
	width := func(start, end int) float64 {
		return measure(string(runes[start:end]), StylePlain)
	}
	ranges := breakRanges(runes, maxWidth, width)
	lines := make([]string, 0, len(ranges))
	for _, rng := range ranges {
		lines = append(lines, string(runes[rng.start:rng.end]))
	}
	return lines
}

type lineRange struct {
	start, end int
}

type wordRange struct {
	start, end int
}

// breakRanges computes whole-word line breaks over runes. Spaces between
// words stay inside a line; the spaces a line breaks on are dropped. width
// reports the rendered width of the half-open rune range [start, end).
func breakRanges(runes []rune, maxWidth float64, width func(start, end int) float64) []lineRange {
	words := splitWords(runes)
	var out []lineRange
	w := 0
	for w < len(words) {
		word := words[w]
		if width(word.start, word.end) > maxWidth {
			cut := word.start + 1
			for cut < word.end && width(word.start, cut+1) <= maxWidth {
				cut++
			}
			out = append(out, lineRange{start: word.start, end: cut})
			words[w].start = cut
			continue
		}
		start := word.start
		end := word.end
		for w+1 < len(words) {
			if width(start, words[w+1].end) > maxWidth {
				break
			}
			w++
			end = words[w].end
		}
		out = append(out, lineRange{start: start, end: end})
		w++
	}
	return out
}

func splitWords(runes []rune) []wordRange {
	var words []wordRange
	i := 0
	for i < len(runes) {
		for i < len(runes) && runes[i] == ' ' {
			i++
		}
		if i >= len(runes) {
			break
		}
		start := i
		for i < len(runes) && runes[i] != ' ' {
			i++
		}
		words = append(words, wordRange{start: start, end: i})
	}
	return words
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

package layout

import (
	"strings"
	"testing"
)

// runeWidth gives every rune width 1 so widths read as character counts.
func runeWidth(text string, _ Style) float64 {
	return float64(len([]rune(text)))
}

// boldWidth doubles emphasized runes, mimicking a bold face that renders
// wider than the regular one.
func boldWidth(text string, style Style) float64 {
	w := float64(len([]rune(text)))
	if style == StyleEmphasis {
		return 2 * w
	}
	return w
}

func joinLine(line Line) string {
	var b strings.Builder
	for _, seg := range line.Segments {
		b.WriteString(seg.Text)
	}
	return b.String()
}

func TestWrapSingleLine(t *testing.T) {
	lines := Wrap("from ", "Jane", " only", 100, runeWidth)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if got := joinLine(lines[0]); got != "from Jane only" {
		t.Fatalf("unexpected line text %q", got)
	}
	if len(lines[0].Underlines) != 1 {
		t.Fatalf("expected 1 underline, got %d", len(lines[0].Underlines))
	}
	span := lines[0].Underlines[0]
	if span.Offset != 5 || span.Width != 4 {
		t.Fatalf("unexpected underline span %+v", span)
	}
}

func TestWrapSegmentOrderPreserved(t *testing.T) {
	before := "Received with thanks from "
	emphasized := "Jane Doe"
	after := " the sum of Rupees One Thousand only."
	lines := Wrap(before, emphasized, after, 20, runeWidth)
	if len(lines) < 2 {
		t.Fatalf("expected multiple lines, got %d", len(lines))
	}

	var rebuilt strings.Builder
	sawEmph := false
	doneEmph := false
	for _, line := range lines {
		for _, seg := range line.Segments {
			if seg.Style == StyleEmphasis {
				if doneEmph && sawEmph {
					// Emphasis may span lines but never restarts after
					// plain "after" text has begun.
					t.Fatalf("emphasized run interleaved out of order")
				}
				sawEmph = true
				rebuilt.WriteString(seg.Text)
			} else if sawEmph && seg.Text != "" {
				doneEmph = true
			}
		}
	}
	if !sawEmph {
		t.Fatal("emphasized run missing from output")
	}
	if got := rebuilt.String(); got != emphasized {
		t.Fatalf("emphasized text = %q, want %q", got, emphasized)
	}
}

func TestWrapReflowsWholeWords(t *testing.T) {
	lines := Wrap("alpha beta ", "gamma", " delta", 11, runeWidth)
	for _, line := range lines {
		if w := runeWidth(joinLine(line), StylePlain); w > 11 {
			t.Fatalf("line %q exceeds max width: %v", joinLine(line), w)
		}
	}
	// No line may end or begin with a break space.
	for _, line := range lines {
		text := joinLine(line)
		if strings.HasPrefix(text, " ") || strings.HasSuffix(text, " ") {
			t.Fatalf("line %q carries a break space", text)
		}
	}
}

func TestWrapUnderlineMatchesEmphasisWidth(t *testing.T) {
	lines := Wrap("Received with thanks from ", "Jane Doe", " the sum of Rupees...", 18, runeWidth)
	for _, line := range lines {
		offset := 0.0
		spans := append([]Span(nil), line.Underlines...)
		for _, seg := range line.Segments {
			width := runeWidth(seg.Text, seg.Style)
			if seg.Style == StyleEmphasis {
				if len(spans) == 0 {
					t.Fatalf("missing underline for emphasized segment %q", seg.Text)
				}
				span := spans[0]
				spans = spans[1:]
				if span.Offset != offset || span.Width != width {
					t.Fatalf("underline %+v does not match segment %q at offset %v width %v", span, seg.Text, offset, width)
				}
			}
			offset += width
		}
		if len(spans) != 0 {
			t.Fatalf("unmatched underline spans: %+v", spans)
		}
	}
}

func TestWrapMeasuresEmphasisInItsOwnStyle(t *testing.T) {
	lines := Wrap("from ", "Jane", " with thanks", 14, boldWidth)
	for _, line := range lines {
		width := 0.0
		for _, seg := range line.Segments {
			width += boldWidth(seg.Text, seg.Style)
		}
		if width > 14 {
			t.Fatalf("line %q exceeds max width under styled measure: %v", joinLine(line), width)
		}
	}

	// Underline offset and width must track the bold widths, not the plain
	// ones: "from " is 5 wide, "Jane" doubles to 8.
	single := Wrap("from ", "Jane", " ok", 100, boldWidth)
	if len(single) != 1 || len(single[0].Underlines) != 1 {
		t.Fatalf("expected one line with one underline, got %+v", single)
	}
	span := single[0].Underlines[0]
	if span.Offset != 5 || span.Width != 8 {
		t.Fatalf("unexpected underline span %+v", span)
	}
}

func TestWrapOverlongWordSplitsByCharacter(t *testing.T) {
	lines := Wrap("", "ABCDEFGHIJ", "", 4, runeWidth)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	var rebuilt strings.Builder
	for _, line := range lines {
		rebuilt.WriteString(joinLine(line))
	}
	if rebuilt.String() != "ABCDEFGHIJ" {
		t.Fatalf("split lost characters: %q", rebuilt.String())
	}
}

func TestWrapPlainLineCount(t *testing.T) {
	lines := WrapPlain("one two three four", 9, runeWidth)
	want := []string{"one two", "three", "four"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines %v, want %v", len(lines), lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

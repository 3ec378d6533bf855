// Package plate turns OCR text blocks from a motorcycle plate photo into a plate number and a region.
package plate

import (
	"sort"
	"strings"
	"unicode"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
)

// Match is the plate and region picked out of a set of text blocks.
type Match struct {
	Plate      string
	Region     string
	Confidence float32
}

// Normalize upper-cases text, turns dashes into spaces, drops anything other than
// A-Z, 0-9 and spaces, and collapses runs of whitespace.
func Normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(text) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// LooksLikePlate reports whether normalized text has the shape of a plate:
// 4 to 8 letters and digits with at least one of each.
func LooksLikePlate(text string) bool {
	var letters, digits int
	for _, r := range text {
		switch {
		case r >= 'A' && r <= 'Z':
			letters++
		case r >= '0' && r <= '9':
			digits++
		case r == ' ':
		default:
			return false
		}
	}
	n := letters + digits
	return n >= 4 && n <= 8 && letters > 0 && digits > 0
}

type line struct {
	text       string
	confidence float32
	top        int
	bottom     int
	left       int
	geometry   bool
}

// Extract picks the plate and region from OCR blocks.
// Lines are ordered top to bottom. The plate is the first line that looks like a plate,
// or the topmost line when none does. The region is the first region label below the
// plate, falling back to the next line below it.
func Extract(blocks []domain.TextBlock) (Match, bool) {
	lines := mergeLines(blocks)
	if len(lines) == 0 {
		return Match{}, false
	}

	plateIdx := -1
	for i, l := range lines {
		if LooksLikePlate(l.text) && !IsKnownRegion(l.text) {
			plateIdx = i
			break
		}
	}
	if plateIdx < 0 {
		plateIdx = 0
	}

	m := Match{Plate: lines[plateIdx].text, Confidence: lines[plateIdx].confidence}
	below := lines[plateIdx+1:]
	for _, l := range below {
		if IsKnownRegion(l.text) {
			m.Region = NormalizeRegion(l.text)
			return m, true
		}
	}
	if len(below) > 0 {
		m.Region = NormalizeRegion(below[0].text)
	}
	return m, true
}

// mergeLines normalizes blocks, orders them by their top edge and joins blocks that
// sit on the same text line. Providers that return single words end up with whole lines.
func mergeLines(blocks []domain.TextBlock) []line {
	var items []line
	for _, b := range blocks {
		text := Normalize(b.Text)
		if text == "" {
			continue
		}
		l := line{text: text, confidence: b.Confidence, top: b.Top(), left: b.Left(), geometry: len(b.Polygon) > 0}
		if l.geometry {
			l.bottom = l.top
			for _, p := range b.Polygon {
				l.bottom = max(l.bottom, p.Y)
			}
		}
		items = append(items, l)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].top != items[j].top {
			return items[i].top < items[j].top
		}
		return items[i].left < items[j].left
	})

	var lines []line
	for _, it := range items {
		if n := len(lines); n > 0 && sameLine(lines[n-1], it) {
			lines[n-1] = join(lines[n-1], it)
			continue
		}
		lines = append(lines, it)
	}
	return lines
}

// sameLine is true when the vertical centre of b falls inside a.
func sameLine(a, b line) bool {
	if !a.geometry || !b.geometry || a.bottom == a.top {
		return false
	}
	centre := (b.top + b.bottom) / 2
	return centre >= a.top && centre <= a.bottom
}

func join(a, b line) line {
	if b.left < a.left {
		a, b = b, a
	}
	return line{
		text:       a.text + " " + b.text,
		confidence: min(a.confidence, b.confidence),
		top:        min(a.top, b.top),
		bottom:     max(a.bottom, b.bottom),
		left:       a.left,
		geometry:   true,
	}
}

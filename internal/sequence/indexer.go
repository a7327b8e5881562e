// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package sequence turns a filtered document into fixed-width comparison
// windows. Text is first broken into units: an ASCII letter run is one unit
// (lowercased), a digit run is one unit, a CJK character is one unit, and
// punctuation/whitespace disappear. A window is sequenceLength consecutive
// units; stride controls how many units apart successive windows start.
package sequence

import (
	"fmt"
	"strings"
	"unicode"

	"twinscan/internal/document"
)

// Unit is one comparison element of the stream with its source position.
type Unit struct {
	Text string
	Page int
	Line int
}

// Stream is the concatenated unit stream of one filtered document. It keeps
// the page/line lookup table for any unit offset, so a window can be mapped
// back to a position even when it straddles lines or pages.
type Stream struct {
	Units []Unit
}

// Len returns the number of units in the stream.
func (s *Stream) Len() int { return len(s.Units) }

// PositionAt maps a unit offset back to its document position.
func (s *Stream) PositionAt(offset int) document.Position {
	if offset < 0 || offset >= len(s.Units) {
		return document.Position{Offset: offset}
	}
	u := s.Units[offset]
	return document.Position{Page: u.Page, Line: u.Line, Offset: offset}
}

// Context returns up to n units of stream text before and after the window
// [start, end). It is used to show each match in its surroundings.
func (s *Stream) Context(start, end, n int) (before, after string) {
	if n <= 0 {
		return "", ""
	}
	lo := start - n
	if lo < 0 {
		lo = 0
	}
	hi := end + n
	if hi > len(s.Units) {
		hi = len(s.Units)
	}
	if start > len(s.Units) {
		start = len(s.Units)
	}
	if end < 0 {
		end = 0
	}
	return JoinUnits(s.Units[lo:start]), JoinUnits(s.Units[end:hi])
}

// Sequence is one fixed-width window. Uniqueness is positional: identical text
// at two different offsets is two distinct sequences.
type Sequence struct {
	Text   string
	Units  []string
	Page   int
	Line   int
	Offset int
}

// Tokenize builds the unit stream of a filtered document, optionally
// restricted to an inclusive page interval.
func Tokenize(doc *document.Document, pr *document.PageRange) (*Stream, error) {
	if err := pr.Validate(); err != nil {
		return nil, err
	}
	if pr != nil && doc.Pages > 0 && pr.Start > doc.Pages {
		return nil, document.NewUsageError(fmt.Sprintf(
			"page range %d-%d starts past the last page (%d)", pr.Start, pr.End, doc.Pages))
	}
	st := &Stream{}
	for _, ln := range doc.Lines {
		if !pr.Contains(ln.Page) {
			continue
		}
		splitLine(st, ln)
	}
	return st, nil
}

// Index slides a window of length units over the stream, emitting one sequence
// every stride units. stride 1 indexes every window; larger strides subsample
// for the faster modes, trading recall for speed.
func Index(st *Stream, length, stride int) ([]Sequence, error) {
	if length < 1 {
		return nil, document.NewUsageError(fmt.Sprintf("sequence length %d: must be at least 1", length))
	}
	if stride < 1 {
		stride = 1
	}
	var seqs []Sequence
	for start := 0; start+length <= len(st.Units); start += stride {
		window := st.Units[start : start+length]
		units := make([]string, length)
		for i, u := range window {
			units[i] = u.Text
		}
		seqs = append(seqs, Sequence{
			Text:   JoinUnits(window),
			Units:  units,
			Page:   window[0].Page,
			Line:   window[0].Line,
			Offset: start,
		})
	}
	return seqs, nil
}

// JoinUnits renders units back into readable text: adjacent CJK characters
// join directly, every other unit boundary gets a separating space.
func JoinUnits(units []Unit) string {
	var b strings.Builder
	for i, u := range units {
		if i > 0 && !(isCJKUnit(units[i-1].Text) && isCJKUnit(u.Text)) {
			b.WriteByte(' ')
		}
		b.WriteString(u.Text)
	}
	return b.String()
}

func isCJKUnit(s string) bool {
	r := []rune(s)
	return len(r) == 1 && isCJK(r[0])
}

func splitLine(st *Stream, ln document.Line) {
	runes := []rune(ln.Text)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case isASCIILetter(r):
			j := i
			for j < len(runes) && isASCIILetter(runes[j]) {
				j++
			}
			st.Units = append(st.Units, Unit{
				Text: strings.ToLower(string(runes[i:j])),
				Page: ln.Page,
				Line: ln.Line,
			})
			i = j
		case unicode.IsDigit(r):
			// A number, decimals included, is a single unit.
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) ||
				(runes[j] == '.' && j+1 < len(runes) && unicode.IsDigit(runes[j+1]))) {
				j++
			}
			st.Units = append(st.Units, Unit{
				Text: string(runes[i:j]),
				Page: ln.Page,
				Line: ln.Line,
			})
			i = j
		case isCJK(r):
			st.Units = append(st.Units, Unit{Text: string(r), Page: ln.Page, Line: ln.Line})
			i++
		default:
			// Punctuation, whitespace and anything else is not compared.
			i++
		}
	}
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

// Package parser extracts labeled fields from free-text LLM completions.
//
// Completions are split into blocks on blank lines. A block is kept only if
// it passes a case-insensitive substring check, and each field is read with
// the pattern **label: text**, where text may span several lines. Absent
// fields are nil.
package parser

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var blankLine = regexp.MustCompile(`\n[ \t\r]*\n`)

// Blocks splits text into non-empty blocks separated by blank lines.
func Blocks(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, b := range blankLine.Split(text, -1) {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Mentions reports whether block contains needle, ignoring case.
func Mentions(block, needle string) bool {
	return strings.Contains(fold(block), fold(needle))
}

// fold returns the NFKC, case-folded form of s. Casers keep state, so one
// is created per call.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

var (
	labelMu sync.Mutex
	labelRe = map[string]*regexp.Regexp{}
)

func labelPattern(label string) *regexp.Regexp {
	labelMu.Lock()
	defer labelMu.Unlock()
	re, ok := labelRe[label]
	if !ok {
		re = regexp.MustCompile(`(?is)\*\*\s*` + regexp.QuoteMeta(label) + `\s*:\s*(.*?)\*\*`)
		labelRe[label] = re
	}
	return re
}

// Field returns the text captured for label in block, or nil when the label
// does not appear.
func Field(block, label string) *string {
	m := labelPattern(label).FindStringSubmatch(block)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(m[1])
	return &v
}

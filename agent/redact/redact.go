// Package redact masks personally identifiable substrings before text leaves the process.
package redact

import (
	"regexp"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/auracx/agent/contract"
)

var _ contractx.Redactor = (*Redactor)(nil)

type pattern struct {
	category    contractx.RedactionCategory
	re          *regexp.Regexp
	placeholder string
	priority    int
	// digitGuard rejects matches that continue into a longer digit run. Letters and
	// underscores may touch the match.
	digitGuard bool
}

// Lower priority wins when two matches start at the same offset with the same length.
var defaultPatterns = []pattern{
	{
		category:    contractx.RedactEmail,
		re:          regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
		placeholder: "[EMAIL]",
		priority:    0,
	},
	{
		category:    contractx.RedactCard,
		re:          regexp.MustCompile(`(?:\d{4}[- ]?){3}\d{4}`),
		placeholder: "[CARD]",
		priority:    1,
		digitGuard:  true,
	},
	{
		category:    contractx.RedactNationalID,
		re:          regexp.MustCompile(`\d{3}-?\d{2}-?\d{4}`),
		placeholder: "[NATIONAL_ID]",
		priority:    2,
		digitGuard:  true,
	},
	{
		category:    contractx.RedactPhone,
		re:          regexp.MustCompile(`(?:\+?1[-. ]?)?(?:\(\d{3}\)|\d{3})[-. ]?\d{3}[-. ]?\d{4}`),
		placeholder: "[PHONE]",
		priority:    3,
		digitGuard:  true,
	},
}

type Redactor struct {
	patterns []pattern
}

func New() *Redactor {
	return &Redactor{patterns: defaultPatterns}
}

type match struct {
	start, end int
	p          *pattern
}

// Redact replaces every detected span with its typed placeholder. Findings carry
// offsets into the original text, sorted by start.
func (r *Redactor) Redact(text string) contractx.RedactionResult {
	if text == "" {
		return contractx.RedactionResult{Text: text}
	}

	var matches []match
	for i := range r.patterns {
		p := &r.patterns[i]
		for _, loc := range p.find(text) {
			matches = append(matches, match{start: loc[0], end: loc[1], p: p})
		}
	}
	if len(matches) == 0 {
		return contractx.RedactionResult{Text: text}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.start != b.start {
			return a.start < b.start
		}
		if la, lb := a.end-a.start, b.end-b.start; la != lb {
			return la > lb
		}
		return a.p.priority < b.p.priority
	})

	var (
		sb       strings.Builder
		findings = make([]contractx.Finding, 0, len(matches))
		cursor   = 0
	)
	sb.Grow(len(text))
	for _, m := range matches {
		if m.start < cursor {
			continue
		}
		sb.WriteString(text[cursor:m.start])
		sb.WriteString(m.p.placeholder)
		findings = append(findings, contractx.Finding{
			Category: m.p.category,
			Start:    m.start,
			End:      m.end,
		})
		cursor = m.end
	}
	sb.WriteString(text[cursor:])

	return contractx.RedactionResult{
		Text:     sb.String(),
		Findings: findings,
	}
}

// find returns the match spans of p in text. Guarded patterns retry past a rejected
// match, skipping the rest of the digit run it started in.
func (p *pattern) find(text string) [][2]int {
	if !p.digitGuard {
		locs := p.re.FindAllStringIndex(text, -1)
		out := make([][2]int, 0, len(locs))
		for _, loc := range locs {
			out = append(out, [2]int{loc[0], loc[1]})
		}
		return out
	}

	var out [][2]int
	for pos := 0; pos < len(text); {
		loc := p.re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if (start > 0 && isDigit(text[start-1])) || (end < len(text) && isDigit(text[end])) {
			pos = start + 1
			for pos < len(text) && isDigit(text[pos]) && isDigit(text[pos-1]) {
				pos++
			}
			continue
		}
		out = append(out, [2]int{start, end})
		pos = end
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

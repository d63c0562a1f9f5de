package resolver

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/AngelCh415/searchterm-insights/internal/models"
)

// SampleRows is how many leading rows contribute to the header vocabulary.
const SampleRows = 30

const stripChars = "()（）[]［］【】{}｛｝<>＜＞《》「」『』_＿-－—:：#＃/／\\.,，、。'\"‘’“”·・%％?？!！*＊"

// NormalizeHeader folds width, lower-cases, and drops whitespace and
// bracket/punctuation characters.
func NormalizeHeader(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || strings.ContainsRune(stripChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Vocabulary collects the distinct headers of the first SampleRows rows in
// first-seen order.
func Vocabulary(rows []models.RawRow) []string {
	seen := make(map[string]struct{})
	var out []string
	for i, row := range rows {
		if i >= SampleRows {
			break
		}
		for _, h := range row.Headers() {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	}
	return out
}

type resolution struct {
	header string
	ok     bool
}

// Resolver maps logical fields onto the headers of one report. It is not
// shared between ingestions.
type Resolver struct {
	headers    []string
	normalized []string
	cache      map[string]resolution
}

func New(headers []string) *Resolver {
	r := &Resolver{
		headers:    headers,
		normalized: make([]string, len(headers)),
		cache:      make(map[string]resolution, len(Specs)),
	}
	for i, h := range headers {
		r.normalized[i] = NormalizeHeader(h)
	}
	return r
}

// Resolve returns the best matching original header for spec, or false.
func (r *Resolver) Resolve(spec ColumnSpec) (string, bool) {
	if res, ok := r.cache[spec.Field]; ok {
		return res.header, res.ok
	}
	h, ok := r.resolve(spec)
	r.cache[spec.Field] = resolution{header: h, ok: ok}
	return h, ok
}

func (r *Resolver) resolve(spec ColumnSpec) (string, bool) {
	aliases := make([]string, 0, len(spec.Aliases))
	for _, a := range spec.Aliases {
		if n := NormalizeHeader(a); n != "" {
			aliases = append(aliases, n)
		}
	}

	for _, a := range aliases {
		for i, h := range r.normalized {
			if h == a {
				return r.headers[i], true
			}
		}
	}

	for _, a := range aliases {
		for i, h := range r.normalized {
			if h == "" {
				continue
			}
			if (substantial(a) && strings.Contains(h, a)) || (substantial(h) && strings.Contains(a, h)) {
				return r.headers[i], true
			}
		}
	}

	for _, re := range spec.Patterns {
		for _, h := range r.headers {
			if re.MatchString(h) {
				return h, true
			}
		}
	}
	return "", false
}

// substantial reports whether s is long enough to take part in containment
// matching. Short Latin fragments ("no", "id") match far too much.
func substantial(s string) bool {
	n := utf8.RuneCountInString(s)
	for _, r := range s {
		if r > unicode.MaxASCII {
			return n >= 2
		}
	}
	return n >= 4
}

// ColumnMap maps a logical field to the header it resolved to. Unresolved
// fields are absent.
type ColumnMap map[string]string

// ResolveAll resolves every spec.
func (r *Resolver) ResolveAll(specs []ColumnSpec) ColumnMap {
	m := make(ColumnMap, len(specs))
	for _, s := range specs {
		if h, ok := r.Resolve(s); ok {
			m[s.Field] = h
		}
	}
	return m
}

// Header is the header to read for field: the resolved one, else the spec
// default, else "" (the field is absent).
func (m ColumnMap) Header(field string) string {
	if h, ok := m[field]; ok {
		return h
	}
	if s, ok := SpecFor(field); ok {
		return s.Default
	}
	return ""
}

package extract

import (
	"regexp"
	"strings"

	"greycells/internal/util/jsonutil"
)

var (
	reListItem   = regexp.MustCompile(`["']([^"']+)["']`)
	reNextKey    = regexp.MustCompile(`^\s*,\s*"[^"\n]{1,64}"\s*:`)
	reValueClose = regexp.MustCompile(`^\s*(?:[}\]]|$)`)
	reBoolValue  = regexp.MustCompile(`(?i)^(true|false)\b`)
)

// scrapeFields is tier 4: for every field still missing, pattern-match a
// `"field": value` shape directly in the raw text. It tolerates unescaped
// quotes and newlines inside string values.
func scrapeFields(text string, schema Schema, have map[string]any) partial {
	p := newPartial()
	for _, f := range schema {
		if _, ok := have[f.Name]; ok {
			continue
		}
		for _, name := range f.names() {
			if v, ok := scrapeField(text, name, f.Kind); ok {
				p.set(f.Name, v)
				break
			}
		}
	}
	return p
}

func scrapeField(text, name string, kind Kind) (any, bool) {
	re := regexp.MustCompile(`(?i)"` + regexp.QuoteMeta(name) + `"\s*:\s*`)
	for _, loc := range re.FindAllStringIndex(text, -1) {
		rest := text[loc[1]:]
		if rest == "" {
			continue
		}
		if v, ok := scrapeValue(rest, kind); ok {
			return v, true
		}
	}
	return nil, false
}

func scrapeValue(rest string, kind Kind) (any, bool) {
	switch rest[0] {
	case '"':
		body, ok := scanStringBody(rest)
		if !ok {
			return nil, false
		}
		return coerce(kind, jsonutil.DecodeLooseString(body))
	case '[':
		end := jsonutil.BalancedSpan(rest, 0)
		if end < 0 {
			end = strings.IndexByte(rest, ']') + 1
		}
		if end <= 0 {
			return nil, false
		}
		raw := rest[:end]
		if kind == KindList {
			items := make([]string, 0, 4)
			for _, m := range reListItem.FindAllStringSubmatch(raw[1:len(raw)-1], -1) {
				items = append(items, jsonutil.DecodeLooseString(m[1]))
			}
			return items, true
		}
		var doc any
		if err := decodeAny(raw, &doc); err != nil {
			return coerce(kind, raw)
		}
		return coerce(kind, doc)
	case '{':
		end := jsonutil.BalancedSpan(rest, 0)
		if end < 0 {
			return nil, false
		}
		var doc any
		if err := decodeAny(rest[:end], &doc); err != nil {
			if kind == KindObject {
				return nil, false
			}
			return coerce(kind, rest[:end])
		}
		return coerce(kind, doc)
	}
	if m := reBoolValue.FindStringSubmatch(rest); m != nil {
		b := strings.EqualFold(m[1], "true")
		if kind == KindBool {
			return b, true
		}
		return coerce(kind, m[1])
	}
	return nil, false
}

// scanStringBody returns the body of the string literal that starts at s[0].
// The literal ends at an unescaped quote followed by a structural delimiter
// (a comma and the next key, a closing bracket, or the end of the text). If
// no quote qualifies, the first unescaped quote ends it.
func scanStringBody(s string) (string, bool) {
	first := -1
	escaped := false
	for i := 1; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != '"' {
			continue
		}
		if first < 0 {
			first = i
		}
		after := s[i+1:]
		if reValueClose.MatchString(after) || reNextKey.MatchString(after) {
			return s[1:i], true
		}
	}
	if first < 0 {
		return "", false
	}
	return s[1:first], true
}

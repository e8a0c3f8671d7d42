package extract

import "strings"

// cleanText strips surrounding whitespace and the stray trailing escaped
// newline ("\n" or "/n" as literal characters) or line continuation that
// prompt-following generators leave at the end of a value.
func cleanText(s string) string {
	return trimTrailing(s, true)
}

// cleanCode is cleanText for program text: a final backslash may be a real
// line continuation and is kept.
func cleanCode(s string) string {
	return trimTrailing(s, false)
}

func trimTrailing(s string, backslash bool) string {
	s = strings.TrimSpace(s)
	for {
		switch {
		case strings.HasSuffix(s, `\n`), strings.HasSuffix(s, "/n"):
			s = strings.TrimSpace(s[:len(s)-2])
		case backslash && strings.HasSuffix(s, `\`) && !strings.HasSuffix(s, `\\`):
			s = strings.TrimSpace(s[:len(s)-1])
		default:
			return s
		}
	}
}

// splitList turns a free-form list section into items: bullet lines,
// numbered lines or a comma separated single line.
func splitList(body string) []string {
	body = strings.TrimSpace(body)
	if body == "" {
		return []string{}
	}
	lines := strings.Split(body, "\n")
	if len(lines) == 1 {
		lines = strings.Split(lines[0], ",")
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		item := strings.TrimSpace(line)
		item = strings.TrimLeft(item, "-*+•")
		item = trimOrdinal(item)
		item = strings.Trim(strings.TrimSpace(item), "\"'`")
		if item == "" || strings.EqualFold(item, "none") {
			continue
		}
		out = append(out, item)
	}
	return out
}

func trimOrdinal(s string) string {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return s[i+1:]
	}
	return s
}

func parseBoolWord(s string) (bool, bool) {
	w := strings.ToLower(strings.Trim(strings.TrimSpace(s), "*_`\"'.,"))
	if i := strings.IndexAny(w, " \t\n"); i > 0 {
		w = w[:i]
	}
	switch w {
	case "true", "yes", "y":
		return true, true
	case "false", "no", "n":
		return false, true
	}
	return false, false
}

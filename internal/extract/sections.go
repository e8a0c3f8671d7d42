package extract

import (
	"regexp"
	"strings"
)

var (
	reMarkdownHeading = regexp.MustCompile(`^#{1,6}\s*(.+?)\s*#*$`)
	reEmphasisLabel   = regexp.MustCompile(`^(?:[-*+]\s+)?\*\*([^*]+?)\s*:?\s*\*\*\s*:?\s*(.*)$`)
	rePlainLabel      = regexp.MustCompile(`^(?:[-*+]\s+)?([A-Za-z][A-Za-z0-9 _-]{0,48}?)\s*:\s*(.*)$`)
	reShoutedLabel    = regexp.MustCompile(`^[A-Z][A-Z0-9 _-]{1,48}$`)
)

type heading struct {
	line   int
	field  int
	inline string
}

// matchHeading recognizes a section heading for one of the schema fields.
func matchHeading(line string, schema Schema) (int, string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return -1, "", false
	}
	if m := reMarkdownHeading.FindStringSubmatch(trimmed); m != nil {
		title := stripEmphasis(m[1])
		if idx, ok := schema.Lookup(strings.TrimSuffix(title, ":")); ok {
			return idx, "", true
		}
		if name, rest, found := strings.Cut(title, ":"); found {
			if idx, ok := schema.Lookup(stripEmphasis(name)); ok {
				return idx, strings.TrimSpace(rest), true
			}
		}
		return -1, "", false
	}
	if m := reEmphasisLabel.FindStringSubmatch(trimmed); m != nil {
		if idx, ok := schema.Lookup(m[1]); ok {
			return idx, strings.TrimSpace(m[2]), true
		}
	}
	if m := rePlainLabel.FindStringSubmatch(trimmed); m != nil {
		if idx, ok := schema.Lookup(m[1]); ok {
			return idx, strings.TrimSpace(m[2]), true
		}
	}
	if reShoutedLabel.MatchString(trimmed) {
		if idx, ok := schema.Lookup(trimmed); ok {
			return idx, "", true
		}
	}
	return -1, "", false
}

func stripEmphasis(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_`"))
}

// findHeadings lists headings outside fenced blocks, in text order.
func findHeadings(l layout, schema Schema) []heading {
	var out []heading
	for i, line := range l.lines {
		if l.inBlock[i] {
			continue
		}
		if idx, inline, ok := matchHeading(line, schema); ok {
			out = append(out, heading{line: i, field: idx, inline: inline})
		}
	}
	return out
}

// scanSections is tier 2: walk recognized headings and read each field's
// value from the section that follows it.
func scanSections(text string, schema Schema) partial {
	p := newPartial()
	l := scanLayout(text)
	heads := findHeadings(l, schema)
	for n, h := range heads {
		f := schema[h.field]
		if _, done := p.values[f.Name]; done {
			continue
		}
		end := len(l.lines)
		if n+1 < len(heads) {
			end = heads[n+1].line
		}
		if v, ok := readSection(l, h, end, f, &p); ok {
			p.set(f.Name, v)
		}
	}
	return p
}

func readSection(l layout, h heading, end int, f Field, p *partial) (any, bool) {
	from := h.line + 1
	prose := sectionProse(l, h, end)
	block, hasBlock := l.firstBlockIn(from, end)

	switch f.Kind {
	case KindText:
		if b, ok := soleBlockOf(l, from, end); ok && h.inline == "" {
			prose = b.body(l.lines)
		}
		s := cleanText(prose)
		return s, s != ""
	case KindCode:
		if hasBlock {
			s := cleanCode(block.body(l.lines))
			return s, s != ""
		}
		s := cleanCode(prose)
		if s != "" {
			p.note(TierSections, f.Name, "no fenced block under heading; using section prose")
		}
		return s, s != ""
	case KindObject:
		src := prose
		if hasBlock {
			src = block.body(l.lines)
		}
		if strings.TrimSpace(src) == "" {
			return nil, false
		}
		m, err := parseObject(src)
		if err != nil {
			p.note(TierSections, f.Name, "structured block did not parse: %v", err)
			return map[string]any{}, true
		}
		return m, true
	case KindList:
		if hasBlock {
			if v, ok := coerce(KindList, parseListBlock(block.body(l.lines))); ok {
				return v, true
			}
		}
		items := splitList(prose)
		return items, len(items) > 0
	case KindBool:
		return parseBoolWord(prose)
	}
	return nil, false
}

// sectionProse is the inline heading value followed by the section lines.
// A YAML block scalar indicator ("content: |") is dropped and the body
// dedented.
func sectionProse(l layout, h heading, end int) string {
	var body []string
	if h.line+1 < end {
		body = l.lines[h.line+1 : min(end, len(l.lines))]
	}
	switch h.inline {
	case "|", "|-", "|+", ">", ">-", ">+":
		return dedent(body)
	case "":
		return strings.Join(body, "\n")
	}
	return h.inline + "\n" + strings.Join(body, "\n")
}

func dedent(lines []string) string {
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		switch {
		case indent <= 0:
			out[i] = line
		case len(line) >= indent && strings.TrimSpace(line[:indent]) == "":
			out[i] = line[indent:]
		default:
			out[i] = strings.TrimSpace(line)
		}
	}
	return strings.Join(out, "\n")
}

// soleBlockOf reports whether the non-blank lines of [from, end) are exactly
// one fenced block.
func soleBlockOf(l layout, from, end int) (fenceBlock, bool) {
	first, last := -1, -1
	for i := from; i < end && i < len(l.lines); i++ {
		if strings.TrimSpace(l.lines[i]) == "" {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	for _, b := range l.blocks {
		if b.open == first && b.close == last {
			return b, true
		}
	}
	return fenceBlock{}, false
}

func parseListBlock(body string) any {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "[") {
		var doc any
		if err := decodeAny(trimmed, &doc); err == nil {
			return doc
		}
	}
	return body
}

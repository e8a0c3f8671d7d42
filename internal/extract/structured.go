package extract

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"greycells/internal/util/jsonutil"
)

func decodeAny(text string, v any) error {
	return jsonutil.UnmarshalFlex([]byte(text), v)
}

// parseDocument is tier 3: treat the text as one structured-data document and
// map its top-level keys onto the schema. The document may be the whole text,
// the body of a fenced block, or a JSON object embedded in prose.
func parseDocument(text string, schema Schema) partial {
	for _, cand := range documentCandidates(text) {
		doc, ok := decodeDocument(cand.text, cand.allowYAML, schema)
		if !ok {
			continue
		}
		p := mapDocument(doc, schema)
		if !p.empty() {
			return p
		}
	}
	return newPartial()
}

type candidate struct {
	text      string
	allowYAML bool
}

func documentCandidates(text string) []candidate {
	out := []candidate{{text: text, allowYAML: true}}
	l := scanLayout(text)
	for _, b := range l.blocks {
		body := b.body(l.lines)
		lang := strings.ToLower(b.lang)
		trimmed := strings.TrimSpace(body)
		switch {
		case lang == "json", strings.HasPrefix(trimmed, "{"), strings.HasPrefix(trimmed, "["):
			out = append(out, candidate{text: body})
		case lang == "yaml", lang == "yml":
			out = append(out, candidate{text: body, allowYAML: true})
		}
	}
	if i := strings.IndexAny(text, "{["); i >= 0 {
		if end := jsonutil.BalancedSpan(text, i); end > i {
			out = append(out, candidate{text: text[i:end]})
		}
	}
	return out
}

func decodeDocument(text string, allowYAML bool, schema Schema) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, `"`) {
		var doc any
		if err := decodeAny(trimmed, &doc); err == nil {
			return jsonutil.FirstObject(doc)
		}
	}
	if !allowYAML {
		return nil, false
	}
	var ydoc any
	if err := yaml.Unmarshal([]byte(trimmed), &ydoc); err != nil {
		return nil, false
	}
	m, ok := jsonutil.FirstObject(normalizeYAML(ydoc))
	if !ok {
		return nil, false
	}
	// Plain prose can decode as YAML; only accept documents keyed by the
	// schema.
	for k := range m {
		if _, hit := schema.Lookup(k); hit {
			return m, true
		}
	}
	return nil, false
}

func mapDocument(doc map[string]any, schema Schema) partial {
	p := newPartial()
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	// Exact names before aliases, then lexical, so the result does not depend
	// on map iteration order.
	sort.Slice(keys, func(i, j int) bool {
		ei, ej := isExactName(schema, keys[i]), isExactName(schema, keys[j])
		if ei != ej {
			return ei
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		idx, ok := schema.Lookup(k)
		if !ok {
			continue
		}
		f := schema[idx]
		v, ok := coerce(f.Kind, doc[k])
		if !ok {
			if f.Kind == KindObject && doc[k] != nil {
				p.note(TierStructured, f.Name, "value of %q is not an object", k)
			}
			continue
		}
		p.set(f.Name, v)
	}
	return p
}

func isExactName(schema Schema, key string) bool {
	for _, f := range schema {
		if normalizeKey(f.Name) == normalizeKey(key) {
			return true
		}
	}
	return false
}

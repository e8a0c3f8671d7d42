// Package extract turns free-form generated text into typed records.
//
// Parsing runs an ordered chain of fallback tiers over one declared Schema:
//
//  1. wrapper peeling: a response that is one fenced block whose body again
//     carries section headings is re-parsed from the body;
//  2. section scan: headed sections ("## Content", "**Filename:** x",
//     "filename: x") are read according to the field kind;
//  3. whole-text structured parse: JSON (or YAML) documents, fenced or not,
//     are mapped key by key onto the schema;
//  4. regex scrape: `"field": value` shapes are pulled out of broken JSON.
//
// Later tiers only fill fields that earlier tiers left empty. Extraction never
// fails; missing fields come back as the empty value of their kind and are
// reported as diagnostics.
package extract

import (
	"fmt"
	"log"
	"strings"
)

// Tier identifies the strategy that produced (or failed to produce) a value.
type Tier int

const (
	TierNone Tier = iota
	TierPeel
	TierSections
	TierStructured
	TierScrape
)

func (t Tier) String() string {
	switch t {
	case TierPeel:
		return "peel"
	case TierSections:
		return "sections"
	case TierStructured:
		return "structured"
	case TierScrape:
		return "scrape"
	default:
		return "none"
	}
}

// Diagnostic is a non-fatal extraction event.
type Diagnostic struct {
	Tier    Tier
	Field   string
	Message string
}

func (d Diagnostic) String() string {
	if d.Field == "" {
		return fmt.Sprintf("[%s] %s", d.Tier, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Tier, d.Field, d.Message)
}

// Result is the outcome of Parse.
type Result struct {
	Record      Record
	Sources     map[string]Tier
	Peeled      int
	Diagnostics []Diagnostic
}

// Complete reports whether every required field (or, for a schema without
// required fields, every field) was found.
func (r Result) Complete(schema Schema) bool {
	return complete(schema, r.Sources)
}

// maxPeel bounds wrapper peeling on pathological nesting.
const maxPeel = 4

// Parse extracts rawText against schema. It is a pure function of its
// inputs.
func Parse(rawText string, schema Schema) Result {
	res := Result{Sources: map[string]Tier{}}
	text := rawText
	for res.Peeled < maxPeel {
		inner, ok := peel(text, schema, maxPeel-res.Peeled)
		if !ok {
			break
		}
		text = inner
		res.Peeled++
	}
	if res.Peeled > 0 {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Tier: TierPeel, Message: fmt.Sprintf("removed %d wrapping fence(s)", res.Peeled)})
	}

	values := map[string]any{}
	merge := func(p partial, tier Tier) {
		for name, v := range p.values {
			if _, ok := values[name]; ok {
				continue
			}
			values[name] = v
			res.Sources[name] = tier
		}
		res.Diagnostics = append(res.Diagnostics, p.notes...)
	}

	sections := scanSections(text, schema)
	merge(sections, TierSections)

	if sections.empty() {
		merge(parseDocument(text, schema), TierStructured)
	}
	if !complete(schema, res.Sources) {
		merge(scrapeFields(text, schema, values), TierScrape)
	}

	res.Record = make(Record, len(schema))
	for _, f := range schema {
		v, ok := values[f.Name]
		if !ok || v == nil {
			res.Record[f.Name] = emptyValue(f.Kind)
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Field: f.Name, Message: "not found; using empty " + string(f.Kind)})
			continue
		}
		res.Record[f.Name] = v
	}
	return res
}

// Extract is Parse without the bookkeeping.
func Extract(rawText string, schema Schema) Record {
	return Parse(rawText, schema).Record
}

func complete(schema Schema, found map[string]Tier) bool {
	req := schema.Required()
	if len(req) == 0 {
		for _, f := range schema {
			if _, ok := found[f.Name]; !ok {
				return false
			}
		}
		return true
	}
	for _, name := range req {
		if _, ok := found[name]; !ok {
			return false
		}
	}
	return true
}

// peel returns the body of text when text is a single fenced block whose body
// carries at least one section heading of schema, directly or under at most
// depth-1 further wrappers. The wrapper may nest fences of its own length.
func peel(text string, schema Schema, depth int) (string, bool) {
	if depth <= 0 {
		return "", false
	}
	l := scanLayout(text)
	var body string
	if b, ok := l.soleBlock(); ok {
		body = b.body(l.lines)
	} else if inner, ok := l.outerFence(); ok {
		body = inner
	}
	if strings.TrimSpace(body) == "" {
		return "", false
	}
	if len(findHeadings(scanLayout(body), schema)) > 0 {
		return body, true
	}
	if _, ok := peel(body, schema, depth-1); ok {
		return body, true
	}
	return "", false
}

// Extractor runs Parse and writes its diagnostics to a logger.
type Extractor struct {
	Logger *log.Logger
}

// Extract parses rawText against schema and logs diagnostics under label.
func (e Extractor) Extract(label, rawText string, schema Schema) Record {
	res := Parse(rawText, schema)
	logger := e.Logger
	if logger == nil {
		logger = log.Default()
	}
	for _, d := range res.Diagnostics {
		logger.Printf("extract: %s %s", label, d)
	}
	return res.Record
}

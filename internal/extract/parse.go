package extract

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"fieldledger/internal/faults"
)

// Model output is free text expected to contain exactly one JSON value.
// Parsing is strict-then-lenient: try the whole body, then strip markdown
// fences, then take the first top-level bracket span. Candidates that parse
// are schema-validated before being trusted; anything else is
// ExtractionUnparseable, a user-actionable failure that must not be retried
// automatically.

const fieldEntrySchema = `{
	"type": "object",
	"required": ["field_name"],
	"properties": {
		"field_name": {"type": "string"},
		"extracted_value": {"type": ["string", "number", "null"]},
		"confidence": {"type": "number"}
	}
}`

var (
	flatSchema = mustCompileSchema("flat.json", `{
		"type": "array",
		"items": `+fieldEntrySchema+`
	}`)

	rosterSchema = mustCompileSchema("roster.json", `{
		"type": "object",
		"required": ["rows"],
		"properties": {
			"header_fields": {"type": "array", "items": `+fieldEntrySchema+`},
			"rows": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["fields"],
					"properties": {
						"row_index": {"type": "number"},
						"fields": {"type": "array", "items": `+fieldEntrySchema+`}
					}
				}
			},
			"total_workers": {"type": "number"}
		}
	}`)
)

func mustCompileSchema(name, doc string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader([]byte(doc))); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}

// modelField is the intermediate shape a model reply is decoded into before
// normalization against the field schema.
type modelField struct {
	FieldName  string   `json:"field_name"`
	Value      any      `json:"extracted_value"`
	Confidence *float64 `json:"confidence"`
}

type modelRoster struct {
	HeaderFields []modelField `json:"header_fields"`
	Rows         []struct {
		RowIndex int          `json:"row_index"`
		Fields   []modelField `json:"fields"`
	} `json:"rows"`
	TotalWorkers int `json:"total_workers"`
}

// parseModelJSON extracts the single JSON value from a model reply.
// wantArray orders the lenient bracket scan so a stray brace in surrounding
// prose cannot shadow the array a flat reply is expected to carry.
func parseModelJSON(content string, wantArray bool) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, faults.New(faults.ExtractionUnparseable, "empty model reply")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	spans := []string{bracketSpan(content, '{', '}'), bracketSpan(content, '[', ']')}
	if wantArray {
		spans[0], spans[1] = spans[1], spans[0]
	}
	for _, span := range spans {
		if span != "" && span != content {
			candidates = append(candidates, span)
		}
	}

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			normalized, mErr := json.Marshal(parsed)
			if mErr != nil {
				return nil, faults.Wrap(faults.ExtractionUnparseable, "normalizing model JSON", mErr)
			}
			return normalized, nil
		}
	}

	return nil, faults.New(faults.ExtractionUnparseable, "no parseable JSON in model reply")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// bracketSpan returns the widest open..closing span in content, "" when the
// pair is absent or inverted.
func bracketSpan(content string, open, closing byte) string {
	start := strings.IndexByte(content, open)
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(content, closing)
	if end < start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}

func validateShape(schema *jsonschema.Schema, raw json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return faults.Wrap(faults.ExtractionUnparseable, "decoding model JSON", err)
	}
	if err := schema.Validate(doc); err != nil {
		return faults.Wrap(faults.ExtractionUnparseable, "model JSON does not match expected shape", err)
	}
	return nil
}

// decodeFlat validates and decodes a flat-layout reply, then normalizes it
// against the schema so every definition appears exactly once.
func decodeFlat(raw json.RawMessage, schema []FieldDefinition, defaults ConfidenceDefaults) ([]ExtractedField, error) {
	if err := validateShape(flatSchema, raw); err != nil {
		return nil, err
	}
	var entries []modelField
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, faults.Wrap(faults.ExtractionUnparseable, "decoding flat extraction", err)
	}
	return normalizeFields(entries, schema, defaults, false), nil
}

// decodeRoster validates and decodes a roster-layout reply. Row indexes are
// re-densified and total_workers is recomputed from the row count rather than
// trusted.
func decodeRoster(raw json.RawMessage, header, row []FieldDefinition, defaults ConfidenceDefaults) ([]ExtractedField, []Row, error) {
	if err := validateShape(rosterSchema, raw); err != nil {
		return nil, nil, err
	}
	var roster modelRoster
	if err := json.Unmarshal(raw, &roster); err != nil {
		return nil, nil, faults.Wrap(faults.ExtractionUnparseable, "decoding roster extraction", err)
	}

	headerFields := normalizeFields(roster.HeaderFields, header, defaults, true)
	rows := make([]Row, 0, len(roster.Rows))
	for i, r := range roster.Rows {
		rows = append(rows, Row{
			RowIndex: i,
			Fields:   normalizeFields(r.Fields, row, defaults, false),
		})
	}
	return headerFields, rows, nil
}

// normalizeFields maps model output onto the schema. Every schema field
// appears exactly once in the result: absent or falsy values become
// {nil, 0}; present values keep a model confidence in (0, 1] or fall back to
// the category default. Entries the schema does not know are dropped.
func normalizeFields(entries []modelField, schema []FieldDefinition, defaults ConfidenceDefaults, header bool) []ExtractedField {
	byName := make(map[string]modelField, len(entries))
	for _, e := range entries {
		if _, ok := byName[e.FieldName]; !ok {
			byName[e.FieldName] = e
		}
	}

	out := make([]ExtractedField, 0, len(schema))
	for _, def := range schema {
		entry, ok := byName[def.Name]
		if !ok {
			out = append(out, ExtractedField{FieldName: def.Name, Value: nil, Confidence: 0})
			continue
		}

		value, readable := stringValue(entry.Value)
		if !readable {
			out = append(out, ExtractedField{FieldName: def.Name, Value: nil, Confidence: 0})
			continue
		}

		conf := defaultConfidence(def, defaults, header)
		if entry.Confidence != nil && *entry.Confidence > 0 && *entry.Confidence <= 1 {
			conf = *entry.Confidence
		}
		out = append(out, ExtractedField{FieldName: def.Name, Value: &value, Confidence: conf})
	}
	return out
}

func defaultConfidence(def FieldDefinition, defaults ConfidenceDefaults, header bool) float64 {
	switch {
	case !def.Required:
		return defaults.Optional
	case header:
		return defaults.Header
	default:
		return defaults.Worker
	}
}

// stringValue renders a model-supplied value as a cell string. The second
// return is false for unreadable values (null or blank).
func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return "", false
		}
		return s, true
	case float64:
		if t == 0 {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

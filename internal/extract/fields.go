package extract

import (
	"fmt"
	"strings"
)

// FieldType constrains what a form field is expected to contain.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldDate   FieldType = "date"
)

// FieldDefinition describes one field the model should extract. Definitions
// are owned by client configuration and passed into extraction requests by
// value.
type FieldDefinition struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Validate checks a definition is usable as a schema entry.
func (f FieldDefinition) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("field definition missing name")
	}
	if strings.TrimSpace(f.Label) == "" {
		return fmt.Errorf("field %q missing label", f.Name)
	}
	switch f.Type {
	case FieldText, FieldNumber, FieldDate:
		return nil
	default:
		return fmt.Errorf("field %q has unknown type %q", f.Name, f.Type)
	}
}

// ExtractedField is the per-field extraction outcome. A nil Value with
// confidence 0 means the field was unreadable on the form.
type ExtractedField struct {
	FieldName  string  `json:"field_name"`
	Value      *string `json:"extracted_value"`
	Confidence float64 `json:"confidence"`
}

// Row is one worker row in a roster-layout extraction. RowIndex is dense
// and zero-based.
type Row struct {
	RowIndex int              `json:"row_index"`
	Fields   []ExtractedField `json:"fields"`
}

// Result is a completed extraction. Exactly one of the two shapes is
// populated: Fields for a flat schema, or HeaderFields/Rows/TotalWorkers for
// a roster schema. TotalWorkers always equals len(Rows).
type Result struct {
	Fields       []ExtractedField `json:"fields,omitempty"`
	HeaderFields []ExtractedField `json:"headerFields,omitempty"`
	Rows         []Row            `json:"rows,omitempty"`
	TotalWorkers *int             `json:"totalWorkers,omitempty"`

	// ProcessingTime is wall time in milliseconds.
	ProcessingTime int64  `json:"processingTime"`
	Model          string `json:"model"`
}

// Layout selects the extraction shape.
type Layout string

const (
	// LayoutFlat extracts one value per field definition.
	LayoutFlat Layout = "flat"
	// LayoutRoster extracts a header block plus a repeating worker row.
	LayoutRoster Layout = "roster"
)

// Request is one extraction job: an image plus the schema to shape the
// result against. Image may be a bare base64 payload or a data URL.
type Request struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`

	// Flat layout schema. May be empty when the server has a configured
	// fallback schema.
	FieldDefinitions []FieldDefinition `json:"fieldDefinitions,omitempty"`

	// Roster layout schema. Layout defaults to flat when empty.
	Layout       Layout            `json:"layout,omitempty"`
	HeaderFields []FieldDefinition `json:"headerFields,omitempty"`
	RowFields    []FieldDefinition `json:"rowFields,omitempty"`
}

// ConfidenceDefaults are the fixed scores assigned when the model supplies a
// value without a usable confidence. Heuristics, not business logic.
type ConfidenceDefaults struct {
	Header   float64
	Worker   float64
	Optional float64
}

// DefaultConfidence returns the stock defaults.
func DefaultConfidence() ConfidenceDefaults {
	return ConfidenceDefaults{Header: 0.9, Worker: 0.85, Optional: 0.7}
}

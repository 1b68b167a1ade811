package extract

import (
	"encoding/json"
	"strings"
	"testing"

	"fieldledger/internal/faults"
)

func TestParseModelJSON(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantArray bool
		wantErr   bool
	}{
		{"bare array", `[{"field_name":"a","extracted_value":"x","confidence":0.9}]`, true, false},
		{"bare object", `{"header_fields":[],"rows":[]}`, false, false},
		{"fenced", "```json\n[{\"field_name\":\"a\",\"extracted_value\":\"x\"}]\n```", true, false},
		{"fenced no language", "```\n[]\n```", true, false},
		{"prose wrapped", `Here is the data you asked for: [{"field_name":"a","extracted_value":"x"}] hope that helps!`, true, false},
		{"prose wrapped object", `Sure! {"header_fields":[],"rows":[]} Done.`, false, false},
		{"no json at all", "I could not read the image, sorry.", true, true},
		{"truncated", `[{"field_name":"a","extracted_value":`, true, true},
		{"empty", "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseModelJSON(tt.content, tt.wantArray)
			if tt.wantErr {
				if faults.KindOf(err) != faults.ExtractionUnparseable {
					t.Errorf("KindOf() = %v, want ExtractionUnparseable", faults.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Errorf("parseModelJSON() error = %v", err)
			}
		})
	}
}

func TestParseModelJSONStrayBraceBeforeArray(t *testing.T) {
	content := `Reading the {handwritten} form gave: [{"field_name":"a","extracted_value":"x"}]`

	raw, err := parseModelJSON(content, true)
	if err != nil {
		t.Fatalf("parseModelJSON() error = %v", err)
	}
	var entries []modelField
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("candidate is not the array: %v", err)
	}
	if len(entries) != 1 || entries[0].FieldName != "a" {
		t.Errorf("entries = %+v", entries)
	}
}

func schemaFor(t *testing.T) []FieldDefinition {
	t.Helper()
	return []FieldDefinition{
		{Name: "worker_name", Label: "Worker Name", Type: FieldText, Required: true},
		{Name: "hours", Label: "Hours", Type: FieldNumber, Required: true},
		{Name: "notes", Label: "Notes", Type: FieldText},
	}
}

func fieldByName(t *testing.T, fields []ExtractedField, name string) ExtractedField {
	t.Helper()
	for _, f := range fields {
		if f.FieldName == name {
			return f
		}
	}
	t.Fatalf("field %q not in result", name)
	return ExtractedField{}
}

func TestDecodeFlatEveryFieldPresentOnce(t *testing.T) {
	raw := []byte(`[
		{"field_name":"worker_name","extracted_value":"Alice","confidence":0.97},
		{"field_name":"worker_name","extracted_value":"Duplicate","confidence":0.5},
		{"field_name":"unknown_extra","extracted_value":"ignored","confidence":0.8}
	]`)

	fields, err := decodeFlat(raw, schemaFor(t), DefaultConfidence())
	if err != nil {
		t.Fatalf("decodeFlat() error = %v", err)
	}
	if len(fields) != 3 {
		t.Fatalf("len(fields) = %d, want 3 (one per schema field)", len(fields))
	}

	name := fieldByName(t, fields, "worker_name")
	if name.Value == nil || *name.Value != "Alice" {
		t.Errorf("worker_name value = %v, want Alice (first duplicate wins)", name.Value)
	}
	if name.Confidence != 0.97 {
		t.Errorf("worker_name confidence = %v, want 0.97", name.Confidence)
	}

	// Fields the model never mentioned come back as unreadable.
	hours := fieldByName(t, fields, "hours")
	if hours.Value != nil || hours.Confidence != 0 {
		t.Errorf("missing field = {%v, %v}, want {nil, 0}", hours.Value, hours.Confidence)
	}
}

func TestDecodeFlatFalsyValues(t *testing.T) {
	raw := []byte(`[
		{"field_name":"worker_name","extracted_value":null,"confidence":0.9},
		{"field_name":"hours","extracted_value":0,"confidence":0.9},
		{"field_name":"notes","extracted_value":"","confidence":0.9}
	]`)

	fields, err := decodeFlat(raw, schemaFor(t), DefaultConfidence())
	if err != nil {
		t.Fatalf("decodeFlat() error = %v", err)
	}
	for _, name := range []string{"worker_name", "hours", "notes"} {
		f := fieldByName(t, fields, name)
		if f.Value != nil || f.Confidence != 0 {
			t.Errorf("%s = {%v, %v}, want unreadable {nil, 0}", name, f.Value, f.Confidence)
		}
	}
}

func TestDecodeFlatConfidenceDefaults(t *testing.T) {
	raw := []byte(`[
		{"field_name":"worker_name","extracted_value":"Alice"},
		{"field_name":"notes","extracted_value":"wet site","confidence":1.7}
	]`)

	fields, err := decodeFlat(raw, schemaFor(t), DefaultConfidence())
	if err != nil {
		t.Fatalf("decodeFlat() error = %v", err)
	}

	// Required field with no reported confidence gets the worker default.
	if got := fieldByName(t, fields, "worker_name").Confidence; got != 0.85 {
		t.Errorf("required field confidence = %v, want 0.85", got)
	}
	// Out-of-range model confidence is discarded for the optional default.
	if got := fieldByName(t, fields, "notes").Confidence; got != 0.7 {
		t.Errorf("optional field confidence = %v, want 0.7", got)
	}
}

func TestDecodeFlatNumericValue(t *testing.T) {
	raw := []byte(`[{"field_name":"hours","extracted_value":7.5,"confidence":0.9}]`)

	fields, err := decodeFlat(raw, schemaFor(t), DefaultConfidence())
	if err != nil {
		t.Fatalf("decodeFlat() error = %v", err)
	}
	hours := fieldByName(t, fields, "hours")
	if hours.Value == nil || *hours.Value != "7.5" {
		t.Errorf("hours value = %v, want \"7.5\"", hours.Value)
	}
}

func TestDecodeFlatReadsExtractedValueKey(t *testing.T) {
	// Values travel under extracted_value; an entry keyed any other way
	// reads as unreadable rather than silently picking up the wrong key.
	raw := []byte(`[{"field_name":"worker_name","value":"Alice","confidence":0.92}]`)

	fields, err := decodeFlat(raw, schemaFor(t), DefaultConfidence())
	if err != nil {
		t.Fatalf("decodeFlat() error = %v", err)
	}
	name := fieldByName(t, fields, "worker_name")
	if name.Value != nil || name.Confidence != 0 {
		t.Errorf("worker_name = {%v, %v}, want unreadable {nil, 0}", name.Value, name.Confidence)
	}
}

func TestDecodeFlatWrongShape(t *testing.T) {
	if _, err := decodeFlat([]byte(`{"rows":[]}`), schemaFor(t), DefaultConfidence()); faults.KindOf(err) != faults.ExtractionUnparseable {
		t.Errorf("KindOf() = %v, want ExtractionUnparseable", faults.KindOf(err))
	}
}

func TestDecodeRoster(t *testing.T) {
	header := []FieldDefinition{{Name: "foreman", Label: "Foreman", Type: FieldText, Required: true}}
	row := []FieldDefinition{
		{Name: "worker_name", Label: "Worker", Type: FieldText, Required: true},
		{Name: "hours", Label: "Hours", Type: FieldNumber, Required: true},
	}
	raw := []byte(`{
		"header_fields":[{"field_name":"foreman","extracted_value":"Bob","confidence":0.95}],
		"rows":[
			{"row_index":3,"fields":[{"field_name":"worker_name","extracted_value":"Alice","confidence":0.9}]},
			{"row_index":7,"fields":[{"field_name":"worker_name","extracted_value":"Carol","confidence":0.9},{"field_name":"hours","extracted_value":6,"confidence":0.8}]}
		],
		"total_workers": 99
	}`)

	headerFields, rows, err := decodeRoster(raw, header, row, DefaultConfidence())
	if err != nil {
		t.Fatalf("decodeRoster() error = %v", err)
	}
	if len(headerFields) != 1 || headerFields[0].Confidence != 0.95 {
		t.Errorf("headerFields = %+v", headerFields)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	// Row indices are re-densified regardless of what the model reported.
	if rows[0].RowIndex != 0 || rows[1].RowIndex != 1 {
		t.Errorf("row indices = %d, %d, want 0, 1", rows[0].RowIndex, rows[1].RowIndex)
	}
	// Each row still carries the full row schema.
	hours := fieldByName(t, rows[0].Fields, "hours")
	if hours.Value != nil {
		t.Errorf("row 0 hours = %v, want nil", hours.Value)
	}
}

func TestDecodeRosterHeaderConfidenceDefault(t *testing.T) {
	header := []FieldDefinition{{Name: "foreman", Label: "Foreman", Type: FieldText, Required: true}}
	raw := []byte(`{"header_fields":[{"field_name":"foreman","extracted_value":"Bob"}],"rows":[]}`)

	headerFields, _, err := decodeRoster(raw, header, nil, DefaultConfidence())
	if err != nil {
		t.Fatalf("decodeRoster() error = %v", err)
	}
	if headerFields[0].Confidence != 0.9 {
		t.Errorf("header confidence = %v, want 0.9", headerFields[0].Confidence)
	}
}

func TestBuildFlatPromptListsFields(t *testing.T) {
	prompt := BuildFlatPrompt(schemaFor(t))
	for _, want := range []string{"Worker Name", "worker_name", "number", "null"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildRosterPromptMentionsRows(t *testing.T) {
	header := []FieldDefinition{{Name: "foreman", Label: "Foreman", Type: FieldText}}
	row := []FieldDefinition{{Name: "worker_name", Label: "Worker", Type: FieldText}}
	prompt := BuildRosterPrompt(header, row)
	for _, want := range []string{"header_fields", "rows", "total_workers", "foreman", "worker_name"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

package extract

import (
	"fmt"
	"strings"
)

// SystemPrompt pins the model to its extraction role.
const SystemPrompt = "You extract structured data from handwritten forms. Return only valid JSON."

// BuildFlatPrompt lists each field and mandates the strict output contract:
// a single JSON array, no prose, no markdown fencing, with the null plus
// zero-confidence convention for unreadable fields.
func BuildFlatPrompt(fields []FieldDefinition) string {
	var b strings.Builder
	b.WriteString("Extract data from this handwritten form. The form contains these fields:\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s (%s)\n", f.Label, f.Type)
	}
	b.WriteString("\nFor each field return a JSON object with:\n")
	b.WriteString(`{ "field_name": string, "extracted_value": string or null, "confidence": number 0-1 }` + "\n\n")
	b.WriteString("Use these field_name keys, in order: ")
	b.WriteString(strings.Join(fieldNames(fields), ", "))
	b.WriteString(".\n")
	b.WriteString("If a field is completely unreadable, set extracted_value to null and confidence to 0.\n")
	b.WriteString("Return a JSON array only. No markdown, no explanation.")
	return b.String()
}

// BuildRosterPrompt describes the form's fixed layout: a header block plus a
// repeating worker row with named sub-fields.
func BuildRosterPrompt(header, row []FieldDefinition) string {
	var b strings.Builder
	b.WriteString("Extract data from this handwritten sign-in sheet. ")
	b.WriteString("The sheet has a header block followed by one row per worker.\n\n")
	b.WriteString("Header fields:\n")
	for _, f := range header {
		fmt.Fprintf(&b, "- %s (%s)\n", f.Label, f.Type)
	}
	b.WriteString("\nEach worker row has these fields:\n")
	for _, f := range row {
		fmt.Fprintf(&b, "- %s (%s)\n", f.Label, f.Type)
	}
	b.WriteString("\nReturn a single JSON object with this shape:\n")
	b.WriteString(`{ "header_fields": [ { "field_name": string, "extracted_value": string or null, "confidence": number 0-1 } ],` + "\n")
	b.WriteString(`  "rows": [ { "row_index": number, "fields": [ same shape as header_fields ] } ],` + "\n")
	b.WriteString(`  "total_workers": number }` + "\n\n")
	fmt.Fprintf(&b, "Header field_name keys, in order: %s.\n", strings.Join(fieldNames(header), ", "))
	fmt.Fprintf(&b, "Row field_name keys, in order: %s.\n", strings.Join(fieldNames(row), ", "))
	b.WriteString("Number row_index from 0 in top-to-bottom order and skip blank rows.\n")
	b.WriteString("If a field is completely unreadable, set extracted_value to null and confidence to 0.\n")
	b.WriteString("Return the JSON object only. No markdown, no explanation.")
	return b.String()
}

func fieldNames(fields []FieldDefinition) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

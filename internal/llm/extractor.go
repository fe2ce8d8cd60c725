// Package llm - extractor.go describes the structured findings format requested from the model.
package llm

import (
	"fmt"
	"strings"
)

// ResponseSchema defines the JSON structure the model is asked to return.
type ResponseSchema struct {
	Name   string        // Schema name
	Fields []SchemaField // Expected output fields
}

// SchemaField defines a single field in the output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint shown to the model
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildResponseInstructions renders the output format section appended to the system prompt.
func BuildResponseInstructions(schema ResponseSchema) string {
	var sb strings.Builder

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "\"string\""
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- points_deducted must be an integer.\n")
	sb.WriteString("- Quote evidence verbatim from the content.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n")

	return sb.String()
}

// FindingsSchema returns the schema for diagnosis findings.
func FindingsSchema() ResponseSchema {
	return ResponseSchema{
		Name: "Findings",
		Fields: []SchemaField{
			{
				Name:        "violations",
				Type:        `[{"category": "string", "category_name": "string", "risk_level": "High|Medium|Low", "points_deducted": 0, "description": "string", "evidence": "string"}]`,
				Description: "One entry per problematic claim, empty when none",
				Required:    true,
			},
			{
				Name:        "recommendations",
				Type:        `[{"issue": "string", "current_expression": "string", "recommended_expression": "string", "explanation": "string"}]`,
				Description: "Concrete rewrites for each problem",
				Required:    true,
			},
			{
				Name:        "summary",
				Type:        `"string"`,
				Description: "Overall assessment in two or three sentences",
				Required:    true,
			},
		},
	}
}

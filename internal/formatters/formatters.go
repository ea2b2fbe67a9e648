package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"cvstudio/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "Document", &DocumentTextFormatter{})
	registry.RegisterFormatter("markdown", "Document", &DocumentMarkdownFormatter{})
	registry.RegisterFormatter("text", "ExtractionResult", &ExtractionTextFormatter{})
	registry.RegisterFormatter("markdown", "ExtractionResult", &ExtractionMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.Document:
		return "Document"
	case types.ExtractionResult:
		return "ExtractionResult"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// DocumentTextFormatter renders a document as plain text
type DocumentTextFormatter struct{}

func (dtf *DocumentTextFormatter) Format(data any) (string, error) {
	doc, ok := data.(types.Document)
	if !ok {
		return "", fmt.Errorf("expected Document, got %T", data)
	}

	var output strings.Builder

	writeContactText(&output, doc.PersonalInfo)

	if doc.Summary != "" {
		output.WriteString("=== SUMMARY ===\n")
		output.WriteString(doc.Summary)
		output.WriteString("\n\n")
	}

	if len(doc.Experience) > 0 {
		output.WriteString("=== EXPERIENCE ===\n")
		for _, exp := range doc.Experience {
			output.WriteString(fmt.Sprintf("%s, %s", exp.Title, exp.Company))
			if exp.StartDate != "" || exp.EndDate != "" {
				output.WriteString(fmt.Sprintf(" (%s - %s)", exp.StartDate, endDateOrPresent(exp.EndDate)))
			}
			output.WriteString("\n")
			if exp.Description != "" {
				output.WriteString(exp.Description)
				output.WriteString("\n")
			}
			output.WriteString("\n")
		}
	}

	if len(doc.Education) > 0 {
		output.WriteString("=== EDUCATION ===\n")
		for _, edu := range doc.Education {
			output.WriteString(fmt.Sprintf("%s, %s", edu.Degree, edu.Institution))
			if edu.StartDate != "" || edu.EndDate != "" {
				output.WriteString(fmt.Sprintf(" (%s - %s)", edu.StartDate, endDateOrPresent(edu.EndDate)))
			}
			output.WriteString("\n")
		}
		output.WriteString("\n")
	}

	if len(doc.Skills) > 0 {
		output.WriteString("=== SKILLS ===\n")
		output.WriteString(strings.Join(doc.Skills, ", "))
		output.WriteString("\n\n")
	}

	if len(doc.Certifications) > 0 {
		output.WriteString("=== CERTIFICATIONS ===\n")
		for _, cert := range doc.Certifications {
			output.WriteString(fmt.Sprintf("- %s\n", cert))
		}
		output.WriteString("\n")
	}

	if len(doc.Projects) > 0 {
		output.WriteString("=== PROJECTS ===\n")
		for _, proj := range doc.Projects {
			output.WriteString(proj.Name)
			if proj.URL != "" {
				output.WriteString(fmt.Sprintf(" (%s)", proj.URL))
			}
			output.WriteString("\n")
			if proj.Description != "" {
				output.WriteString(proj.Description)
				output.WriteString("\n")
			}
		}
		output.WriteString("\n")
	}

	writeCoverLetterText(&output, doc)

	return output.String(), nil
}

func (dtf *DocumentTextFormatter) SupportedType() string {
	return "Document"
}

func writeContactText(output *strings.Builder, info types.PersonalInfo) {
	if info == (types.PersonalInfo{}) {
		return
	}
	if info.Name != "" {
		output.WriteString(info.Name)
		output.WriteString("\n")
	}
	var contact []string
	for _, part := range []string{info.Email, info.Phone, info.Location, info.LinkedIn, info.Portfolio} {
		if part != "" {
			contact = append(contact, part)
		}
	}
	if len(contact) > 0 {
		output.WriteString(strings.Join(contact, " | "))
		output.WriteString("\n")
	}
	output.WriteString("\n")
}

func writeCoverLetterText(output *strings.Builder, doc types.Document) {
	if doc.Motivation != "" {
		output.WriteString("=== MOTIVATION ===\n")
		output.WriteString(doc.Motivation)
		output.WriteString("\n\n")
	}
	for _, block := range doc.ContentBlocks {
		output.WriteString(block)
		output.WriteString("\n\n")
	}
	if doc.Closing != "" {
		output.WriteString(doc.Closing)
		output.WriteString("\n")
	}
}

func endDateOrPresent(end string) string {
	if end == "" {
		return "Present"
	}
	return end
}

// DocumentMarkdownFormatter renders a document as markdown
type DocumentMarkdownFormatter struct{}

func (dmf *DocumentMarkdownFormatter) Format(data any) (string, error) {
	doc, ok := data.(types.Document)
	if !ok {
		return "", fmt.Errorf("expected Document, got %T", data)
	}

	var output strings.Builder

	if doc.PersonalInfo.Name != "" {
		output.WriteString(fmt.Sprintf("# %s\n\n", doc.PersonalInfo.Name))
	}
	var contact []string
	for _, part := range []string{doc.PersonalInfo.Email, doc.PersonalInfo.Phone, doc.PersonalInfo.Location, doc.PersonalInfo.LinkedIn, doc.PersonalInfo.Portfolio} {
		if part != "" {
			contact = append(contact, part)
		}
	}
	if len(contact) > 0 {
		output.WriteString(strings.Join(contact, " | "))
		output.WriteString("\n\n")
	}

	if doc.Summary != "" {
		output.WriteString("## Summary\n\n")
		output.WriteString(doc.Summary)
		output.WriteString("\n\n")
	}

	if len(doc.Experience) > 0 {
		output.WriteString("## Experience\n\n")
		for _, exp := range doc.Experience {
			output.WriteString(fmt.Sprintf("### %s, %s\n\n", exp.Title, exp.Company))
			if exp.StartDate != "" || exp.EndDate != "" {
				output.WriteString(fmt.Sprintf("*%s - %s*\n\n", exp.StartDate, endDateOrPresent(exp.EndDate)))
			}
			if exp.Description != "" {
				output.WriteString(exp.Description)
				output.WriteString("\n\n")
			}
		}
	}

	if len(doc.Education) > 0 {
		output.WriteString("## Education\n\n")
		for _, edu := range doc.Education {
			output.WriteString(fmt.Sprintf("- **%s**, %s", edu.Degree, edu.Institution))
			if edu.StartDate != "" || edu.EndDate != "" {
				output.WriteString(fmt.Sprintf(" (%s - %s)", edu.StartDate, endDateOrPresent(edu.EndDate)))
			}
			output.WriteString("\n")
		}
		output.WriteString("\n")
	}

	if len(doc.Skills) > 0 {
		output.WriteString("## Skills\n\n")
		output.WriteString(strings.Join(doc.Skills, ", "))
		output.WriteString("\n\n")
	}

	if len(doc.Certifications) > 0 {
		output.WriteString("## Certifications\n\n")
		for _, cert := range doc.Certifications {
			output.WriteString(fmt.Sprintf("- %s\n", cert))
		}
		output.WriteString("\n")
	}

	if len(doc.Projects) > 0 {
		output.WriteString("## Projects\n\n")
		for _, proj := range doc.Projects {
			if proj.URL != "" {
				output.WriteString(fmt.Sprintf("### [%s](%s)\n\n", proj.Name, proj.URL))
			} else {
				output.WriteString(fmt.Sprintf("### %s\n\n", proj.Name))
			}
			if proj.Description != "" {
				output.WriteString(proj.Description)
				output.WriteString("\n\n")
			}
		}
	}

	if doc.Motivation != "" {
		output.WriteString("## Motivation\n\n")
		output.WriteString(doc.Motivation)
		output.WriteString("\n\n")
	}
	for _, block := range doc.ContentBlocks {
		output.WriteString(block)
		output.WriteString("\n\n")
	}
	if doc.Closing != "" {
		output.WriteString(doc.Closing)
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (dmf *DocumentMarkdownFormatter) SupportedType() string {
	return "Document"
}

// ExtractionTextFormatter renders an extraction result as plain text
type ExtractionTextFormatter struct{}

func (etf *ExtractionTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ExtractionResult)
	if !ok {
		return "", fmt.Errorf("expected ExtractionResult, got %T", data)
	}

	var output strings.Builder

	docText, err := (&DocumentTextFormatter{}).Format(result.ExtractedFields)
	if err != nil {
		return "", err
	}
	output.WriteString("=== EXTRACTED DATA ===\n\n")
	output.WriteString(docText)
	output.WriteString("\n")

	if len(result.MissingInfo) > 0 {
		output.WriteString("=== MISSING INFORMATION ===\n")
		for _, missing := range result.MissingInfo {
			output.WriteString(fmt.Sprintf("- %s\n", missing))
		}
		output.WriteString("\n")
	}

	if len(result.Questions) > 0 {
		output.WriteString("=== FOLLOW-UP QUESTIONS ===\n")
		for i, question := range result.Questions {
			output.WriteString(fmt.Sprintf("%d. %s\n", i+1, question))
		}
		output.WriteString("\n")
	}

	if result.Confidence != nil {
		output.WriteString(fmt.Sprintf("Confidence: %.2f\n", *result.Confidence))
	}

	return output.String(), nil
}

func (etf *ExtractionTextFormatter) SupportedType() string {
	return "ExtractionResult"
}

// ExtractionMarkdownFormatter renders an extraction result as markdown
type ExtractionMarkdownFormatter struct{}

func (emf *ExtractionMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ExtractionResult)
	if !ok {
		return "", fmt.Errorf("expected ExtractionResult, got %T", data)
	}

	var output strings.Builder

	docMD, err := (&DocumentMarkdownFormatter{}).Format(result.ExtractedFields)
	if err != nil {
		return "", err
	}
	output.WriteString("# Extracted Data\n\n")
	output.WriteString(docMD)
	output.WriteString("\n")

	if len(result.MissingInfo) > 0 {
		output.WriteString("## Missing Information\n\n")
		for _, missing := range result.MissingInfo {
			output.WriteString(fmt.Sprintf("- %s\n", missing))
		}
		output.WriteString("\n")
	}

	if len(result.Questions) > 0 {
		output.WriteString("## Follow-up Questions\n\n")
		for i, question := range result.Questions {
			output.WriteString(fmt.Sprintf("%d. %s\n", i+1, question))
		}
		output.WriteString("\n")
	}

	if result.Confidence != nil {
		output.WriteString(fmt.Sprintf("**Confidence:** %.2f\n", *result.Confidence))
	}

	return output.String(), nil
}

func (emf *ExtractionMarkdownFormatter) SupportedType() string {
	return "ExtractionResult"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()

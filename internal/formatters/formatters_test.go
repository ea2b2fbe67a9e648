package formatters

import (
	"strings"
	"testing"

	"cvstudio/internal/types"
)

func sampleDocument() types.Document {
	return types.Document{
		PersonalInfo: types.PersonalInfo{
			Name:  "Jane Doe",
			Email: "jane@example.com",
		},
		Summary: "Backend engineer",
		Experience: []types.ExperienceEntry{
			{Title: "Engineer", Company: "Acme", StartDate: "2020", EndDate: ""},
		},
		Skills: []string{"Go", "SQL"},
	}
}

func TestFormatDocumentJSON(t *testing.T) {
	registry := NewFormatterRegistry()

	out, err := registry.Format(sampleDocument(), "json")
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	for _, want := range []string{`"name": "Jane Doe"`, `"skills"`} {
		if !strings.Contains(out, want) {
			t.Errorf("json output missing %q", want)
		}
	}
}

func TestFormatDocumentText(t *testing.T) {
	registry := NewFormatterRegistry()

	out, err := registry.Format(sampleDocument(), "text")
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	for _, want := range []string{"Jane Doe", "=== EXPERIENCE ===", "Engineer, Acme", "Present", "Go, SQL"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q", want)
		}
	}
}

func TestFormatDocumentMarkdown(t *testing.T) {
	registry := NewFormatterRegistry()

	out, err := registry.Format(sampleDocument(), "markdown")
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	for _, want := range []string{"# Jane Doe", "## Experience", "### Engineer, Acme", "## Skills"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q", want)
		}
	}
}

func TestFormatExtractionResultText(t *testing.T) {
	registry := NewFormatterRegistry()
	conf := 0.85
	result := types.ExtractionResult{
		ExtractedFields: sampleDocument(),
		MissingInfo:     []string{"phone number"},
		Questions:       []string{"What is your phone number?"},
		Confidence:      &conf,
	}

	out, err := registry.Format(result, "text")
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	for _, want := range []string{"=== MISSING INFORMATION ===", "phone number", "=== FOLLOW-UP QUESTIONS ===", "Confidence: 0.85"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestNilConfidenceOmitted(t *testing.T) {
	registry := NewFormatterRegistry()
	result := types.ExtractionResult{ExtractedFields: sampleDocument()}

	out, err := registry.Format(result, "text")
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	if strings.Contains(out, "Confidence") {
		t.Error("nil confidence should not be rendered")
	}
}

func TestUnknownFormatRejected(t *testing.T) {
	registry := NewFormatterRegistry()
	if _, err := registry.Format(sampleDocument(), "yaml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

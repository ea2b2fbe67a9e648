package reply

import (
	"reflect"
	"testing"

	"cvstudio/internal/errors"
)

func TestParseWellFormedReply(t *testing.T) {
	raw := `{
		"extractedData": {
			"personalInfo": {"name": "Jane Doe", "email": "jane@x.com"},
			"skills": ["Go"]
		},
		"missingInfo": ["phone number"],
		"questions": ["What is your phone number?"],
		"confidence": 0.8
	}`

	result, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if result.ExtractedFields.PersonalInfo.Name != "Jane Doe" {
		t.Errorf("name = %q, want %q", result.ExtractedFields.PersonalInfo.Name, "Jane Doe")
	}
	if result.ExtractedFields.PersonalInfo.Email != "jane@x.com" {
		t.Errorf("email = %q, want %q", result.ExtractedFields.PersonalInfo.Email, "jane@x.com")
	}
	if !reflect.DeepEqual(result.Questions, []string{"What is your phone number?"}) {
		t.Errorf("questions = %v", result.Questions)
	}
	if result.Confidence == nil || *result.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", result.Confidence)
	}
}

func TestParseTolerance(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantQuestions []string
	}{
		{
			name:          "partial record without confidence",
			raw:           `{"extractedData":{},"questions":["What is your email?"]}`,
			wantQuestions: []string{"What is your email?"},
		},
		{
			name:          "empty object",
			raw:           `{}`,
			wantQuestions: []string{},
		},
		{
			name:          "markdown fenced json",
			raw:           "```json\n{\"questions\":[\"Where do you live?\"]}\n```",
			wantQuestions: []string{"Where do you live?"},
		},
		{
			name:          "generic fence",
			raw:           "```\n{\"questions\":[\"Where do you live?\"]}\n```",
			wantQuestions: []string{"Where do you live?"},
		},
		{
			name:          "object wrapped in prose",
			raw:           "Here is what I found: {\"questions\":[\"What year did you graduate?\"]} Let me know!",
			wantQuestions: []string{"What year did you graduate?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if !reflect.DeepEqual(result.Questions, tt.wantQuestions) {
				t.Errorf("questions = %v, want %v", result.Questions, tt.wantQuestions)
			}
			if result.Confidence != nil {
				t.Errorf("confidence should be unspecified, got %v", *result.Confidence)
			}
			if result.MissingInfo == nil {
				t.Errorf("missingInfo should be normalized to empty, got nil")
			}
		})
	}
}

func TestParseFailure(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain prose", raw: "not json at all"},
		{name: "json string literal", raw: `"just a string"`},
		{name: "empty reply", raw: ""},
		{name: "broken braces", raw: "{ this is } not { json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if err == nil {
				t.Fatal("expected parse error, got nil")
			}
			if !errors.IsParse(err) {
				t.Errorf("expected parse error type, got %v", err)
			}
		})
	}
}

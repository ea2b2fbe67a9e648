package prompt

import (
	"strings"
	"testing"

	"cvstudio/internal/types"
)

func TestBuildEmbedsInputAndSnapshot(t *testing.T) {
	b := NewBuilder()
	doc := types.Document{
		PersonalInfo: types.PersonalInfo{Name: "Jane Doe", Email: "jane@x.com"},
		Skills:       []string{"Go"},
	}

	got, err := b.Build(types.KindResume, "I worked at Acme for five years", doc, "")
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	for _, want := range []string{
		"I worked at Acme for five years",
		`"name":"Jane Doe"`,
		`"email":"jane@x.com"`,
		`"skills":["Go"]`,
		"extractedData",
		"missingInfo",
		"questions",
		"confidence",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildCoverLetterEmbedsJobDescription(t *testing.T) {
	b := NewBuilder()

	got, err := b.Build(types.KindCoverLetter, "I love distributed systems", types.Document{}, "Senior Go engineer at Globex")
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if !strings.Contains(got, "I love distributed systems") {
		t.Errorf("prompt missing raw input")
	}
	if !strings.Contains(got, "Senior Go engineer at Globex") {
		t.Errorf("prompt missing job description context")
	}
}

func TestBuildIsPure(t *testing.T) {
	b := NewBuilder()
	doc := types.Document{Summary: "builder of things"}

	first, err := b.Build(types.KindResume, "input", doc, "")
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	second, err := b.Build(types.KindResume, "input", doc, "")
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if first != second {
		t.Error("Build is not deterministic for identical inputs")
	}
}

func TestBuildGenerate(t *testing.T) {
	b := NewBuilder()

	resumePrompt, err := b.BuildGenerate(types.GenerateInput{
		Kind:     types.KindResume,
		Document: types.Document{Summary: "engineer"},
		Template: "modern",
	})
	if err != nil {
		t.Fatalf("BuildGenerate returned error: %v", err)
	}
	if !strings.Contains(resumePrompt, "modern") {
		t.Errorf("generate prompt missing template style")
	}

	letterPrompt, err := b.BuildGenerate(types.GenerateInput{
		Kind:           types.KindCoverLetter,
		Document:       types.Document{Motivation: "shipping"},
		JobDescription: "Platform team lead",
	})
	if err != nil {
		t.Fatalf("BuildGenerate returned error: %v", err)
	}
	if !strings.Contains(letterPrompt, "Platform team lead") {
		t.Errorf("generate prompt missing job description")
	}
}

func TestCustomPromptsFallBackToDefaults(t *testing.T) {
	b := NewBuilderWithPrompts(
		SystemPrompts{ExtractResume: "custom system"},
		UserPrompts{},
	)

	if got := b.System(types.KindResume); got != "custom system" {
		t.Errorf("System(resume) = %q, want custom override", got)
	}
	if got := b.System(types.KindCoverLetter); got != DefaultSystemPrompts.ExtractCoverLetter {
		t.Errorf("System(coverLetter) should fall back to default")
	}
}

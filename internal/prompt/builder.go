// Package prompt constructs the natural-language instructions sent to the
// model for extraction and generation turns.
package prompt

import (
	"encoding/json"
	"fmt"

	"cvstudio/internal/types"
)

// Builder formats prompts from resolved templates. It holds no mutable
// state; Build and System are pure functions of their inputs.
type Builder struct {
	system SystemPrompts
	user   UserPrompts
}

// NewBuilder creates a builder using the default prompt templates
func NewBuilder() *Builder {
	return &Builder{
		system: DefaultSystemPrompts,
		user:   DefaultUserPrompts,
	}
}

// NewBuilderWithPrompts creates a builder with custom templates. Empty
// template fields fall back to the defaults, mirroring the config
// resolution order (file > config > default).
func NewBuilderWithPrompts(system SystemPrompts, user UserPrompts) *Builder {
	return &Builder{
		system: SystemPrompts{
			ExtractResume:      resolve(system.ExtractResume, DefaultSystemPrompts.ExtractResume),
			ExtractCoverLetter: resolve(system.ExtractCoverLetter, DefaultSystemPrompts.ExtractCoverLetter),
			Generate:           resolve(system.Generate, DefaultSystemPrompts.Generate),
		},
		user: UserPrompts{
			ExtractResume:       resolve(user.ExtractResume, DefaultUserPrompts.ExtractResume),
			ExtractCoverLetter:  resolve(user.ExtractCoverLetter, DefaultUserPrompts.ExtractCoverLetter),
			GenerateResume:      resolve(user.GenerateResume, DefaultUserPrompts.GenerateResume),
			GenerateCoverLetter: resolve(user.GenerateCoverLetter, DefaultUserPrompts.GenerateCoverLetter),
		},
	}
}

// Build constructs the extraction prompt for one conversation turn. The raw
// input and a JSON snapshot of the current document are embedded verbatim so
// the model can avoid re-asking for known fields. For cover letters,
// extraContext carries the target job description and is embedded separately
// from the personal input.
func (b *Builder) Build(kind types.DocumentKind, rawInput string, current types.Document, extraContext string) (string, error) {
	snapshot, err := json.Marshal(current)
	if err != nil {
		return "", fmt.Errorf("failed to serialize document snapshot: %w", err)
	}

	switch kind {
	case types.KindCoverLetter:
		return fmt.Sprintf(b.user.ExtractCoverLetter, rawInput, extraContext, snapshot), nil
	default:
		return fmt.Sprintf(b.user.ExtractResume, rawInput, snapshot), nil
	}
}

// BuildGenerate constructs the prompt for producing polished section content
// from a completed document
func (b *Builder) BuildGenerate(input types.GenerateInput) (string, error) {
	snapshot, err := json.Marshal(input.Document)
	if err != nil {
		return "", fmt.Errorf("failed to serialize document snapshot: %w", err)
	}

	switch input.Kind {
	case types.KindCoverLetter:
		return fmt.Sprintf(b.user.GenerateCoverLetter, snapshot, input.JobDescription), nil
	default:
		template := input.Template
		if template == "" {
			template = "professional"
		}
		return fmt.Sprintf(b.user.GenerateResume, snapshot, template), nil
	}
}

// System returns the system instruction for an extraction turn
func (b *Builder) System(kind types.DocumentKind) string {
	if kind == types.KindCoverLetter {
		return b.system.ExtractCoverLetter
	}
	return b.system.ExtractResume
}

// GenerateSystem returns the system instruction for generation
func (b *Builder) GenerateSystem() string {
	return b.system.Generate
}

func resolve(custom, fallback string) string {
	if custom != "" {
		return custom
	}
	return fallback
}

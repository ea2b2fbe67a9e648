// Package reply parses model replies into structured extraction results.
package reply

import (
	"encoding/json"
	"strings"

	"cvstudio/internal/errors"
	"cvstudio/internal/types"
)

// Parse interprets a raw model reply as the documented extraction shape
// (extractedData, missingInfo, questions, confidence).
//
// Any of the four top-level fields may be absent: a missing extractedData
// yields an empty field set, missing sequences stay empty and a missing
// confidence stays nil. Parse fails only when the reply cannot be
// interpreted as the documented shape at all; callers treat that as "no
// fields extracted" and surface the raw reply as the assistant message.
func Parse(rawReply string) (types.ExtractionResult, error) {
	cleaned := stripCodeFence(rawReply)

	var result types.ExtractionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
		normalize(&result)
		return result, nil
	}

	// Models occasionally wrap the object in prose. Retry on the outermost
	// brace-delimited slice before giving up.
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &result); err == nil {
			normalize(&result)
			return result, nil
		}
	}

	return types.ExtractionResult{}, errors.NewParseError(errors.ErrCodeReplyNotParseable,
		"model reply is not in the documented extraction shape", nil)
}

// normalize replaces nil sequences with empty ones so callers can range
// without nil checks. Confidence is deliberately left untouched: nil means
// the model did not report one.
func normalize(r *types.ExtractionResult) {
	if r.MissingInfo == nil {
		r.MissingInfo = []string{}
	}
	if r.Questions == nil {
		r.Questions = []string{}
	}
}

// stripCodeFence removes a markdown code block wrapper from a reply.
// Models often fence JSON in ```json ... ``` even when instructed not to.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Drop a language identifier on the opening fence line
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(text[:idx])
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

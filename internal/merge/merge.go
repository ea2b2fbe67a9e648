// Package merge combines newly extracted fields into an existing document
// without losing data the user already supplied.
package merge

import (
	"cvstudio/internal/types"
)

// Documents merges extracted fields into current and returns a new value.
// current is never mutated; callers hold the old reference until the new one
// is adopted, so concurrent readers never see a half-updated document.
//
// Rules per section:
//   - scalar: overwrite only when the extracted value is non-empty
//   - record (personalInfo): merge field-by-field with the scalar rule
//   - list (experience, education, skills, certifications, projects,
//     contentBlocks): append; extracted entries are treated as additional,
//     insertion order preserved, nothing dropped
func Documents(current, extracted types.Document) types.Document {
	merged := current

	merged.PersonalInfo = personalInfo(current.PersonalInfo, extracted.PersonalInfo)
	merged.Summary = scalar(current.Summary, extracted.Summary)
	merged.Motivation = scalar(current.Motivation, extracted.Motivation)
	merged.Closing = scalar(current.Closing, extracted.Closing)

	merged.Experience = appendList(current.Experience, extracted.Experience)
	merged.Education = appendList(current.Education, extracted.Education)
	merged.Skills = appendList(current.Skills, extracted.Skills)
	merged.Certifications = appendList(current.Certifications, extracted.Certifications)
	merged.Projects = appendList(current.Projects, extracted.Projects)
	merged.ContentBlocks = appendList(current.ContentBlocks, extracted.ContentBlocks)

	return merged
}

// personalInfo merges the contact record field-by-field; the record is never
// wholesale-replaced, so an extraction that only carries an email cannot
// erase a known name.
func personalInfo(current, extracted types.PersonalInfo) types.PersonalInfo {
	return types.PersonalInfo{
		Name:      scalar(current.Name, extracted.Name),
		Email:     scalar(current.Email, extracted.Email),
		Phone:     scalar(current.Phone, extracted.Phone),
		Location:  scalar(current.Location, extracted.Location),
		LinkedIn:  scalar(current.LinkedIn, extracted.LinkedIn),
		Portfolio: scalar(current.Portfolio, extracted.Portfolio),
	}
}

// scalar overwrites only with a non-empty value; empty extracted values
// never erase existing user data.
func scalar(current, extracted string) string {
	if extracted != "" {
		return extracted
	}
	return current
}

// appendList returns current followed by extracted. The result never aliases
// current's backing array, so the returned document is safe to mutate later
// without affecting holders of the old value.
func appendList[T any](current, extracted []T) []T {
	if len(extracted) == 0 {
		return current
	}
	out := make([]T, 0, len(current)+len(extracted))
	out = append(out, current...)
	out = append(out, extracted...)
	return out
}

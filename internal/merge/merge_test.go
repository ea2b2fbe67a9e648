package merge

import (
	"reflect"
	"testing"

	"cvstudio/internal/types"
)

func TestMergeEmptyIsIdempotent(t *testing.T) {
	tests := []struct {
		name    string
		current types.Document
	}{
		{
			name:    "empty document",
			current: types.Document{},
		},
		{
			name: "populated document",
			current: types.Document{
				PersonalInfo: types.PersonalInfo{
					Name:  "Alice",
					Email: "alice@example.com",
				},
				Summary:    "Engineer with ten years of experience",
				Skills:     []string{"Go", "SQL"},
				Experience: []types.ExperienceEntry{{Title: "Engineer", Company: "Acme"}},
				Education:  []types.EducationEntry{{Degree: "BSc", Institution: "MIT"}},
			},
		},
		{
			name: "cover letter document",
			current: types.Document{
				Motivation:    "I want to build things",
				Closing:       "Sincerely, Alice",
				ContentBlocks: []string{"opening paragraph", "body paragraph"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Documents(tt.current, types.Document{})
			if !reflect.DeepEqual(got, tt.current) {
				t.Errorf("Documents(d, empty) = %+v, want %+v", got, tt.current)
			}
		})
	}
}

func TestMergeScalarNonDestructive(t *testing.T) {
	current := types.Document{
		PersonalInfo: types.PersonalInfo{Name: "Alice"},
	}

	got := Documents(current, types.Document{
		PersonalInfo: types.PersonalInfo{Name: ""},
	})

	if got.PersonalInfo.Name != "Alice" {
		t.Errorf("empty extracted name erased existing value: got %q", got.PersonalInfo.Name)
	}
}

func TestMergeScalarOverwrite(t *testing.T) {
	current := types.Document{Summary: "old summary"}

	got := Documents(current, types.Document{Summary: "new summary"})

	if got.Summary != "new summary" {
		t.Errorf("non-empty extracted summary not applied: got %q", got.Summary)
	}
	if current.Summary != "old summary" {
		t.Errorf("current document was mutated: got %q", current.Summary)
	}
}

func TestMergePersonalInfoFieldByField(t *testing.T) {
	current := types.Document{
		PersonalInfo: types.PersonalInfo{
			Name:  "Alice",
			Phone: "555-0100",
		},
	}

	got := Documents(current, types.Document{
		PersonalInfo: types.PersonalInfo{Email: "alice@example.com"},
	})

	want := types.PersonalInfo{
		Name:  "Alice",
		Email: "alice@example.com",
		Phone: "555-0100",
	}
	if !reflect.DeepEqual(got.PersonalInfo, want) {
		t.Errorf("personalInfo merged wholesale: got %+v, want %+v", got.PersonalInfo, want)
	}
}

func TestMergeListAppend(t *testing.T) {
	current := types.Document{Skills: []string{"Go"}}

	got := Documents(current, types.Document{Skills: []string{"Rust"}})

	want := []string{"Go", "Rust"}
	if !reflect.DeepEqual(got.Skills, want) {
		t.Errorf("skills = %v, want %v", got.Skills, want)
	}
}

func TestMergeListAppendDoesNotAlias(t *testing.T) {
	current := types.Document{Skills: []string{"Go", "SQL"}}

	got := Documents(current, types.Document{Skills: []string{"Rust"}})
	got.Skills[0] = "changed"

	if current.Skills[0] != "Go" {
		t.Errorf("merged result aliases current's backing array")
	}
}

// Re-extracting an entry that already exists appends it again. The merger
// never drops or collapses rows; suppressing repeats is the extraction
// prompt's job, which sees the current document and is told to return only
// new entries.
func TestMergeRepeatedEntryAppends(t *testing.T) {
	entry := types.ExperienceEntry{Title: "Engineer", Company: "Acme", StartDate: "2020", EndDate: "2023"}
	current := types.Document{Experience: []types.ExperienceEntry{entry}}

	got := Documents(current, types.Document{Experience: []types.ExperienceEntry{entry}})

	if len(got.Experience) != 2 {
		t.Fatalf("expected 2 experience entries, got %d", len(got.Experience))
	}
	if !reflect.DeepEqual(got.Experience[0], entry) || !reflect.DeepEqual(got.Experience[1], entry) {
		t.Errorf("repeated entry must be preserved verbatim: %+v", got.Experience)
	}
}

func TestMergeStructuredLists(t *testing.T) {
	current := types.Document{
		Experience: []types.ExperienceEntry{
			{Title: "Junior Engineer", Company: "Acme"},
		},
	}

	got := Documents(current, types.Document{
		Experience: []types.ExperienceEntry{
			{Title: "Senior Engineer", Company: "Globex"},
		},
	})

	if len(got.Experience) != 2 {
		t.Fatalf("expected 2 experience entries, got %d", len(got.Experience))
	}
	if got.Experience[0].Company != "Acme" || got.Experience[1].Company != "Globex" {
		t.Errorf("experience order not preserved: %+v", got.Experience)
	}
}

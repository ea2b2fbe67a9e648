package types

import "time"

// DocumentKind identifies which kind of document a conversation is building
type DocumentKind string

const (
	KindResume      DocumentKind = "resume"
	KindCoverLetter DocumentKind = "coverLetter"
)

// Valid reports whether the kind is one of the supported document kinds
func (k DocumentKind) Valid() bool {
	return k == KindResume || k == KindCoverLetter
}

// PersonalInfo holds the contact section of a document
type PersonalInfo struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Location  string `json:"location,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
}

// ExperienceEntry represents one work experience item
type ExperienceEntry struct {
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Description string `json:"description,omitempty"`
}

// EducationEntry represents one education item
type EducationEntry struct {
	Degree      string `json:"degree,omitempty"`
	Institution string `json:"institution,omitempty"`
	Location    string `json:"location,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Description string `json:"description,omitempty"`
}

// ProjectEntry represents one project item
type ProjectEntry struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Document is the in-progress resume or cover letter being built by a
// conversation. Scalar sections are overwritten only by non-empty values,
// record sections merge field-by-field and list sections append; see the
// merge package for the full rule table. The zero value is a valid empty
// document, which also serves as the "partial document" shape the model
// returns in extractedData (zero-valued fields mean "not extracted").
type Document struct {
	PersonalInfo   PersonalInfo      `json:"personalInfo"`
	Summary        string            `json:"summary,omitempty"`
	Experience     []ExperienceEntry `json:"experience,omitempty"`
	Education      []EducationEntry  `json:"education,omitempty"`
	Skills         []string          `json:"skills,omitempty"`
	Certifications []string          `json:"certifications,omitempty"`
	Projects       []ProjectEntry    `json:"projects,omitempty"`

	// Cover letter sections
	Motivation    string   `json:"motivation,omitempty"`
	Closing       string   `json:"closing,omitempty"`
	ContentBlocks []string `json:"contentBlocks,omitempty"`
}

// ExtractionResult is the structured outcome of one model reply.
// Confidence is advisory and stays nil when the model did not report one;
// callers must not substitute a default.
type ExtractionResult struct {
	ExtractedFields Document `json:"extractedData"`
	MissingInfo     []string `json:"missingInfo,omitempty"`
	Questions       []string `json:"questions,omitempty"`
	Confidence      *float64 `json:"confidence,omitempty"`
}

// MessageRole identifies the author of a conversation message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry in a conversation transcript. Messages are
// append-only and never mutated once added.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// GenerateInput represents the input for generating polished document content
type GenerateInput struct {
	Kind           DocumentKind `json:"kind"`
	Document       Document     `json:"document"`
	Template       string       `json:"template,omitempty"`
	JobDescription string       `json:"jobDescription,omitempty"`
}

// Attachment carries binary payload bytes for the vision/document path
type Attachment struct {
	Bytes    []byte `json:"-"`
	MIMEType string `json:"mimeType"`
}

package prompt

// SystemPrompts contains all system-level instructions for model interactions
type SystemPrompts struct {
	ExtractResume      string
	ExtractCoverLetter string
	Generate           string
}

// UserPrompts contains user-level prompt templates with placeholders for
// dynamic content
type UserPrompts struct {
	ExtractResume      string
	ExtractCoverLetter string
	GenerateResume     string
	GenerateCoverLetter string
}

// DefaultSystemPrompts provides the default system instructions
var DefaultSystemPrompts = SystemPrompts{
	ExtractResume: `You are an AI assistant helping a user build a professional resume through conversation. Your core principles are:

- Extract only information the user actually provided; never invent details
- Track what is still missing and ask specific, encouraging follow-up questions
- Never re-ask for information already present in the current resume data
- Always reply with a single JSON object in the documented shape, nothing else`,

	ExtractCoverLetter: `You are an AI assistant helping a user write a professional cover letter through conversation. Your core principles are:

- Extract only information the user actually provided; never invent details
- Tailor follow-up questions to the target job description when one is given
- Never re-ask for information already present in the current cover letter data
- Always reply with a single JSON object in the documented shape, nothing else`,

	Generate: `You are an expert resume and cover letter writer. Produce polished, professional section content strictly from the data provided; never invent skills, employers or dates. Always reply with a single JSON object, nothing else.`,
}

// DefaultUserPrompts provides the default user prompt templates.
// Placeholders are filled by the Builder: raw input first, then the
// serialized document snapshot (and the job description for cover letters).
var DefaultUserPrompts = UserPrompts{
	ExtractResume: `The user has provided the following information: "%s"

Current resume data: %s

Please analyze this information and:
1. Extract relevant resume information (name, contact, experience, education, skills, certifications, projects)
2. Identify what information is still missing
3. Ask specific questions to gather the missing information

Reply with exactly this JSON shape:
{
  "extractedData": {
    "personalInfo": {"name": "", "email": "", "phone": "", "location": "", "linkedin": "", "portfolio": ""},
    "summary": "",
    "experience": [{"title": "", "company": "", "location": "", "startDate": "", "endDate": "", "description": ""}],
    "education": [{"degree": "", "institution": "", "location": "", "startDate": "", "endDate": "", "description": ""}],
    "skills": [],
    "certifications": [],
    "projects": [{"name": "", "description": "", "url": ""}]
  },
  "missingInfo": ["list of missing information"],
  "questions": ["specific questions to ask the user"],
  "confidence": 0.8
}
Omit any extractedData field the input does not mention. Only include experience, education and project entries that are new; entries already present in the current resume data must not be repeated.`,

	ExtractCoverLetter: `User input: "%s"
Target job description: "%s"

Current cover letter data: %s

Please:
1. Extract relevant information for the cover letter
2. Identify what is still missing
3. Ask specific questions to gather the missing information

Reply with exactly this JSON shape:
{
  "extractedData": {
    "personalInfo": {"name": "", "email": "", "phone": "", "location": ""},
    "motivation": "",
    "experience": [{"title": "", "company": "", "description": ""}],
    "skills": [],
    "closing": ""
  },
  "missingInfo": ["list of missing information"],
  "questions": ["specific questions to ask the user"],
  "confidence": 0.8
}
Omit any extractedData field the input does not mention.`,

	GenerateResume: `Generate professional resume content based on this data: %s

Template style: %s

Create well-formatted, professional content for each section. Reply with exactly this JSON shape:
{
  "extractedData": {
    "personalInfo": {},
    "summary": "",
    "experience": [],
    "education": [],
    "skills": [],
    "certifications": []
  }
}`,

	GenerateCoverLetter: `Write a professional cover letter based on: %s
For this job: %s

Make it compelling, specific, and tailored to the role. Reply with exactly this JSON shape:
{
  "extractedData": {
    "contentBlocks": ["opening paragraph", "body paragraphs", "closing paragraph"],
    "closing": ""
  }
}`,
}

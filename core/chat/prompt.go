package chat

import "strings"

const basePrompt = "You are an AI teaching assistant for a course. Help students and professors with course-related questions."

// SystemPrompt builds the system instruction for a course. Only material names are listed, not their contents.
func SystemPrompt(syllabus string, materials []string) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	if syllabus != "" {
		b.WriteString("\n\nCourse Syllabus:\n")
		b.WriteString(syllabus)
	}
	if len(materials) > 0 {
		b.WriteString("\n\nCourse Materials:\n")
		b.WriteString(strings.Join(materials, "\n"))
	}
	return b.String()
}

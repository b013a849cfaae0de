package chat

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Turn is one message of the transcript sent to the language model.
type Turn struct {
	Role    string
	Content string
}

// ContentBlock is one block of a model reply; only "text" blocks carry Text.
type ContentBlock struct {
	Type string
	Text string
}

type Completion struct {
	Blocks []ContentBlock
}

// Text returns the first text block of the completion.
func (c Completion) Text() (string, bool) {
	for _, b := range c.Blocks {
		if b.Type == "text" {
			return b.Text, true
		}
	}
	return "", false
}

type SendRequest struct {
	CourseID string `json:"courseId" validate:"required"`
	Message  string `json:"message" validate:"required,max=20000"`
}

package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/course"
)

const (
	HistoryLimit  = 20
	FallbackReply = "I apologize, but I could not generate a response."
)

type (
	Repository interface {
		// CreateMessages inserts messages in the given order.
		CreateMessages(ctx context.Context, msgs []Message, exec ...core.DBExecutor) error
		// QueryRecentMessages returns at most `limit` of the latest messages of a user in a course, oldest first.
		// A limit <= 0 returns them all.
		QueryRecentMessages(ctx context.Context, courseID, userID string, limit int, exec ...core.DBExecutor) ([]Message, error)
	}

	// Completer sends a transcript to a language model.
	Completer interface {
		Complete(ctx context.Context, system string, turns []Turn) (Completion, error)
	}

	// CourseProvider gives access to the course context fed to the model.
	CourseProvider interface {
		GetByID(ctx context.Context, id string) (course.Course, error)
		MaterialNames(ctx context.Context, courseID string) ([]string, error)
	}

	Service struct {
		db      core.DB
		repo    Repository
		courses CourseProvider
		llm     Completer
	}
)

func NewService(db core.DB, repo Repository, courses CourseProvider, llm Completer) *Service {
	return &Service{
		db:      db,
		repo:    repo,
		courses: courses,
		llm:     llm,
	}
}

// Send relays `message` to the model within the context of a course and returns the assistant reply.
// Access to the course must have been checked by the caller.
// History is scoped to the (course, user) pair: students never see each other's turns.
func (svc *Service) Send(ctx context.Context, courseID, userID, message string) (string, error) {
	crs, err := svc.courses.GetByID(ctx, courseID)
	if err != nil {
		return "", errors.Wrap(err, "getting course")
	}
	materials, err := svc.courses.MaterialNames(ctx, courseID)
	if err != nil {
		return "", errors.Wrap(err, "getting material names")
	}
	history, err := svc.repo.QueryRecentMessages(ctx, courseID, userID, HistoryLimit)
	if err != nil {
		return "", errors.Wrap(err, "querying history")
	}

	turns := make([]Turn, 0, len(history)+1)
	for _, m := range history {
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	turns = append(turns, Turn{Role: RoleUser, Content: message})

	completion, err := svc.llm.Complete(ctx, SystemPrompt(crs.SyllabusText.String, materials), turns)
	if err != nil {
		return "", errors.Wrap(err, "completing chat")
	}
	reply, ok := completion.Text()
	if !ok {
		reply = FallbackReply
	}

	now := time.Now().UTC()
	msgs := []Message{
		{ID: uuid.New().String(), CourseID: courseID, UserID: userID, Role: RoleUser, Content: message, CreatedAt: now},
		{ID: uuid.New().String(), CourseID: courseID, UserID: userID, Role: RoleAssistant, Content: reply, CreatedAt: now},
	}
	err = core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		return svc.repo.CreateMessages(ctx, msgs, exec)
	})
	if err != nil {
		return "", errors.Wrap(err, "saving messages")
	}
	return reply, nil
}

// History returns the whole conversation of a user in a course, oldest first.
func (svc *Service) History(ctx context.Context, courseID, userID string) ([]Message, error) {
	msgs, err := svc.repo.QueryRecentMessages(ctx, courseID, userID, 0)
	if err != nil {
		return nil, errors.Wrap(err, "querying history")
	}
	return msgs, nil
}

package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/chat"
)

type chatMessageRow struct {
	ID        string `db:"id"`
	CourseID  string `db:"course_id"`
	UserID    string `db:"user_id"`
	Role      string `db:"role"`
	Content   string `db:"content"`
	CreatedAt int64  `db:"created_at"`
}

func (r chatMessageRow) unpack() chat.Message {
	return chat.Message{
		ID:        r.ID,
		CourseID:  r.CourseID,
		UserID:    r.UserID,
		Role:      r.Role,
		Content:   r.Content,
		CreatedAt: fromUnix(r.CreatedAt),
	}
}

type chatRepository struct {
	baseRepository
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(exec core.DBExecutor) *chatRepository {
	return &chatRepository{baseRepository{exec: exec}}
}

func (repo chatRepository) CreateMessages(ctx context.Context, msgs []chat.Message, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	for _, m := range msgs {
		_, err := ex.ExecContext(ctx,
			"INSERT INTO chat_messages (id, course_id, user_id, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			m.ID, m.CourseID, m.UserID, m.Role, m.Content, toUnix(m.CreatedAt),
		)
		if err != nil {
			return errors.Wrap(err, "inserting chat message")
		}
	}
	return nil
}

// QueryRecentMessages relies on rowid to order messages sharing a timestamp in insertion order.
func (repo chatRepository) QueryRecentMessages(ctx context.Context, courseID, userID string, limit int, exec ...core.DBExecutor) ([]chat.Message, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	var rows []chatMessageRow
	err := repo.getExec(exec).SelectContext(ctx, &rows, `
		SELECT id, course_id, user_id, role, content, created_at FROM (
			SELECT rowid AS rid, id, course_id, user_id, role, content, created_at FROM chat_messages
			WHERE course_id = ? AND user_id = ?
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		) ORDER BY created_at, rid`, courseID, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "selecting chat messages")
	}
	msgs := make([]chat.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, r.unpack())
	}
	return msgs, nil
}

package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/auth"
)

type magicLinkRow struct {
	Token     string `db:"token"`
	UserID    string `db:"user_id"`
	ExpiresAt int64  `db:"expires_at"`
	Used      bool   `db:"used"`
	CreatedAt int64  `db:"created_at"`
}

func (r magicLinkRow) unpack() auth.MagicLink {
	return auth.MagicLink{
		Token:     r.Token,
		UserID:    r.UserID,
		ExpiresAt: fromUnix(r.ExpiresAt),
		Used:      r.Used,
		CreatedAt: fromUnix(r.CreatedAt),
	}
}

type magicLinkRepository struct {
	baseRepository
}

var _ auth.Repository = (*magicLinkRepository)(nil) // interface compliance check

func NewMagicLinkRepository(exec core.DBExecutor) *magicLinkRepository {
	return &magicLinkRepository{baseRepository{exec: exec}}
}

func (repo magicLinkRepository) CreateMagicLink(ctx context.Context, link auth.MagicLink, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		"INSERT INTO magic_links (token, user_id, expires_at, used, created_at) VALUES (?, ?, ?, ?, ?)",
		link.Token, link.UserID, toUnix(link.ExpiresAt), link.Used, toUnix(link.CreatedAt),
	)
	return errors.Wrap(err, "inserting magic link")
}

func (repo magicLinkRepository) ConsumeMagicLink(ctx context.Context, token string, now time.Time, exec ...core.DBExecutor) (string, error) {
	var userID string
	err := repo.getExec(exec).GetContext(ctx, &userID,
		"UPDATE magic_links SET used = 1 WHERE token = ? AND used = 0 AND expires_at > ? RETURNING user_id",
		token, toUnix(now),
	)
	if err != nil {
		return "", trapNoRowsErr(err, auth.ErrInvalidToken, "consuming magic link")
	}
	return userID, nil
}

func (repo magicLinkRepository) GetMagicLink(ctx context.Context, token string, exec ...core.DBExecutor) (auth.MagicLink, error) {
	var row magicLinkRow
	err := repo.getExec(exec).GetContext(ctx, &row,
		"SELECT token, user_id, expires_at, used, created_at FROM magic_links WHERE token = ?", token)
	if err != nil {
		return auth.MagicLink{}, trapNoRowsErr(err, auth.ErrInvalidToken, "finding magic link")
	}
	return row.unpack(), nil
}

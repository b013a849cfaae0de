package auth

import (
	"time"

	"github.com/trezcool/aicanvas/core"
)

// MagicLink is a single-use login token.
// It is consumed once, and expired when ExpiresAt is not after the current time.
type MagicLink struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"` // UTC
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (ml MagicLink) IsExpired(now time.Time) bool { return !ml.ExpiresAt.After(now) }

type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,role"`
}

func (lr *LoginRequest) Clean() {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	lr.Role = core.CleanString(lr.Role, true /* lower */)
}

// LoginResult tells how the magic link was delivered.
// DevLink is only set in dev mode, when no outbound mail transport is configured.
type LoginResult struct {
	Sent    bool
	DevLink string
}

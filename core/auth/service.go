package auth

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/user"
)

const verifyPath = "/api/auth/verify"

var (
	NowFunc = time.Now // mockable

	// errors
	ErrInvalidToken = errors.New("invalid or expired token")
)

type (
	Repository interface {
		CreateMagicLink(ctx context.Context, link MagicLink, exec ...core.DBExecutor) error
		// ConsumeMagicLink marks an unused, unexpired link as used and returns its user ID, in one statement.
		// Unknown, used or expired links yield ErrInvalidToken.
		ConsumeMagicLink(ctx context.Context, token string, now time.Time, exec ...core.DBExecutor) (string, error)
		GetMagicLink(ctx context.Context, token string, exec ...core.DBExecutor) (MagicLink, error)
	}

	Service struct {
		repo    Repository
		usrSvc  *user.Service
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

func NewService(repo Repository, usrSvc *user.Service, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
	}
}

// Issue creates a new magic link token for the given user, valid for conf.MagicLinkTTL.
func (svc *Service) Issue(ctx context.Context, userID string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", errors.Wrap(err, "generating token")
	}
	now := NowFunc().UTC()
	link := MagicLink{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(svc.conf.MagicLinkTTL),
		CreatedAt: now,
	}
	if err = svc.repo.CreateMagicLink(ctx, link); err != nil {
		return "", errors.Wrap(err, "creating magic link")
	}
	return token, nil
}

// Consume exchanges a valid token for the ID of the user it was issued to. A token can only be consumed once.
func (svc *Service) Consume(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	now := NowFunc().UTC()
	userID, err := svc.repo.ConsumeMagicLink(ctx, token, now)
	if errors.Is(err, ErrInvalidToken) {
		svc.logRejection(ctx, token, now)
	}
	return userID, err
}

// logRejection records why a token could not be consumed.
func (svc *Service) logRejection(ctx context.Context, token string, now time.Time) {
	link, err := svc.repo.GetMagicLink(ctx, token)
	switch {
	case errors.Is(err, ErrInvalidToken):
		svc.logger.Info("magic link rejected: unknown token")
	case err != nil:
		svc.logger.Warn("magic link rejected: lookup failed", err)
	case link.Used:
		svc.logger.Info(fmt.Sprintf("magic link rejected: already used (user %s)", link.UserID))
	case link.IsExpired(now):
		svc.logger.Info(fmt.Sprintf("magic link rejected: expired (user %s)", link.UserID))
	}
}

// RequestLogin resolves (or creates, when `roleIfNew` is given) the user owning `email`,
// issues a magic link and delivers it.
func (svc *Service) RequestLogin(ctx context.Context, email, roleIfNew string) (LoginResult, error) {
	usr, created, err := svc.usrSvc.GetOrCreate(ctx, email, roleIfNew)
	if err != nil {
		return LoginResult{}, errors.Wrap(err, "getting or creating user")
	}
	if created {
		svc.logger.Info(fmt.Sprintf("user created at login: %s (%s)", usr.Email, usr.Role))
	}

	token, err := svc.Issue(ctx, usr.ID)
	if err != nil {
		return LoginResult{}, err
	}
	link := svc.LinkFor(token)

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name.String, Address: usr.Email}},
		Subject:      "Your login link",
		TemplateName: "magic_link",
		TemplateData: map[string]string{
			"Link":      link,
			"ExpiresIn": humanizeDuration(svc.conf.MagicLinkTTL),
		},
	}
	if err = svc.mailSvc.SendMessages(ctx, msg); err != nil {
		return LoginResult{}, errors.Wrap(err, "sending magic link")
	}

	if svc.conf.DevMailMode() {
		return LoginResult{Sent: true, DevLink: link}, nil
	}
	return LoginResult{Sent: true}, nil
}

// LinkFor builds the absolute verification URL for a token.
func (svc *Service) LinkFor(token string) string {
	q := make(url.Values)
	q.Set("token", token)
	return svc.conf.BaseURL + verifyPath + "?" + q.Encode()
}

func humanizeDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	}
	return d.String()
}

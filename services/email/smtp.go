package emailsvc

import (
	"context"

	"github.com/pkg/errors"
	gomail "github.com/wneessen/go-mail"

	"github.com/trezcool/aicanvas/core"
)

type smtpService struct {
	conf       *core.Config
	subjPrefix string
	dial       func(ctx context.Context, msgs ...*gomail.Msg) error // mockable
}

var _ core.EmailService = (*smtpService)(nil)

// NewSMTPService delivers emails through an SMTP relay. Port 465 uses implicit TLS,
// any other port upgrades with STARTTLS when offered.
func NewSMTPService(conf *core.Config) (*smtpService, error) {
	opts := []gomail.Option{gomail.WithPort(conf.SMTP.Port)}
	if conf.SMTP.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if conf.SMTP.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(conf.SMTP.User),
			gomail.WithPassword(conf.SMTP.Pass),
		)
	}
	client, err := gomail.NewClient(conf.SMTP.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating smtp client")
	}
	return &smtpService{
		conf:       conf,
		subjPrefix: "[" + conf.AppName + "] ",
		dial:       client.DialAndSendWithContext,
	}, nil
}

func (svc *smtpService) SendMessages(ctx context.Context, messages ...*core.EmailMessage) error {
	msgs := make([]*gomail.Msg, 0, len(messages))
	for _, msg := range messages {
		if err := msg.Prepare(svc.conf); err != nil {
			return errors.Wrap(err, "preparing email")
		}
		m, err := svc.prepare(*msg)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	if len(msgs) == 0 {
		return nil
	}
	return errors.Wrap(svc.dial(ctx, msgs...), "sending email")
}

func (svc *smtpService) prepare(msg core.EmailMessage) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	from := svc.conf.DefaultFromEmail()
	if err := m.FromFormat(from.Name, from.Address); err != nil {
		return nil, errors.Wrap(err, "setting sender")
	}
	for _, to := range msg.To {
		if err := m.AddToFormat(to.Name, to.Address); err != nil {
			return nil, errors.Wrapf(err, "adding recipient %s", to.Address)
		}
	}
	m.Subject(svc.subjPrefix + msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.TextContent)
	if msg.HTMLContent != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTMLContent)
	}
	return m, nil
}

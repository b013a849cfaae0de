package emailsvc

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core"
)

// consoleService prints emails instead of delivering them. It is used in dev mode,
// when neither SMTP nor SendGrid is configured, so that magic links show up in the logs.
type consoleService struct {
	conf          *core.Config
	logger        core.Logger
	from          mail.Address
	subjPrefix    string
	disableOutput bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config, logger core.Logger) *consoleService {
	return &consoleService{
		conf:       conf,
		logger:     logger,
		from:       conf.DefaultFromEmail(),
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (svc *consoleService) SendMessages(ctx context.Context, messages ...*core.EmailMessage) error {
	for _, msg := range messages {
		if err := svc.sendMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

func (svc *consoleService) sendMessage(msg *core.EmailMessage) error {
	if err := msg.Prepare(svc.conf); err != nil {
		return errors.Wrap(err, "preparing email")
	}
	if !svc.disableOutput {
		svc.logger.Info(svc.format(*msg))
	}
	return nil
}

func (svc *consoleService) format(msg core.EmailMessage) string {
	body := new(strings.Builder)
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.from.String())
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	_, _ = fmt.Fprint(body, "\r\n")
	_, _ = fmt.Fprintf(body, "%s\r\n", msg.TextContent)
	return body.String()
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// ConsoleServiceMock records sent messages without printing them.
type ConsoleServiceMock struct {
	consoleService

	mu   sync.Mutex
	sent []core.EmailMessage
}

func NewConsoleServiceMock(conf *core.Config, logger core.Logger) *ConsoleServiceMock {
	svc := NewConsoleService(conf, logger)
	svc.disableOutput = true
	return &ConsoleServiceMock{consoleService: *svc}
}

func (svc *ConsoleServiceMock) SendMessages(ctx context.Context, messages ...*core.EmailMessage) error {
	for _, msg := range messages {
		if err := svc.sendMessage(msg); err != nil {
			return err
		}
		svc.mu.Lock()
		svc.sent = append(svc.sent, *msg)
		svc.mu.Unlock()
	}
	return nil
}

// SentMessages returns a copy of the messages sent so far.
func (svc *ConsoleServiceMock) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}

// Package emailsvc implements core.EmailService over SMTP, SendGrid and the console.
package emailsvc

import "github.com/trezcool/aicanvas/core"

// NewService picks the mail transport: SMTP when a host is set, else SendGrid when an API key is set,
// else the console (dev mode).
func NewService(conf *core.Config, logger core.Logger) (core.EmailService, error) {
	switch {
	case conf.SMTP.Host != "":
		return NewSMTPService(conf)
	case conf.SendgridAPIKey != "":
		return NewSendgridService(conf), nil
	default:
		return NewConsoleService(conf, logger), nil
	}
}

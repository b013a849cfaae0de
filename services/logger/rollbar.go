// Package logsvc implements core.Logger on top of a std logger, forwarding to Rollbar when enabled.
package logsvc

import (
	"context"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/user"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.BaseURL)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(!conf.Debug && !conf.TestMode && conf.RollbarToken != "")
	return &RollbarLogger{std: std}
}

// prepare turns the args into rollbar.Log args. A user.User is attached to the item through its context,
// leaving the client's global person untouched.
// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+2)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		if usr, ok := arg.(user.User); ok {
			if !usrSet { // only set one User
				newArgs = append(newArgs, rollbar.NewPersonContext(context.Background(), &rollbar.Person{
					Id:       usr.ID,
					Username: usr.Name.String,
					Email:    usr.Email,
				}))
				usrSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	return newArgs
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Println(level + " " + msg)
	for _, arg := range args {
		if _, ok := arg.(user.User); ok {
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print("DEBUG", msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print("INFO", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print("WARN", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print("ERROR", msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.print("FATAL", msg, args)
	l.std.Fatal(msg)
}

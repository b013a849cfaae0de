// Package di wires the API dependencies with a dig container.
package di

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/aicanvas/apps/api/echo"
	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/auth"
	"github.com/trezcool/aicanvas/core/chat"
	"github.com/trezcool/aicanvas/core/course"
	"github.com/trezcool/aicanvas/core/user"
	emailsvc "github.com/trezcool/aicanvas/services/email"
	llmsvc "github.com/trezcool/aicanvas/services/llm"
	logsvc "github.com/trezcool/aicanvas/services/logger"
	"github.com/trezcool/aicanvas/services/pdftext"
	"github.com/trezcool/aicanvas/storage/database"
	sqlxrepos "github.com/trezcool/aicanvas/storage/database/sqlx"
	filestore "github.com/trezcool/aicanvas/storage/files"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

// newDB opens the database file and applies pending migrations.
func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) (core.EmailService, error) {
	return emailsvc.NewService(conf, logger)
}

func newFileStore(conf *core.Config) (course.FileStore, error) {
	return filestore.NewStore(context.Background(), conf)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newFileStore))
	must(c.Provide(pdftext.NewExtractor, dig.As(new(course.TextExtractor))))
	must(c.Provide(llmsvc.NewAnthropicCompleter, dig.As(new(chat.Completer))))

	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewMagicLinkRepository, dig.As(new(auth.Repository))))
	must(c.Provide(sqlxrepos.NewCourseRepository, dig.As(new(course.Repository))))
	must(c.Provide(sqlxrepos.NewEnrollmentRepository, dig.As(new(course.EnrollmentRepository))))
	must(c.Provide(sqlxrepos.NewMaterialRepository, dig.As(new(course.MaterialRepository))))
	must(c.Provide(sqlxrepos.NewChatRepository, dig.As(new(chat.Repository))))

	must(c.Provide(user.NewService))
	must(c.Provide(auth.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(func(svc *course.Service) chat.CourseProvider { return svc }))
	must(c.Provide(chat.NewService))

	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(func(
		conf *core.Config,
		logger core.Logger,
		usrSvc *user.Service,
		authSvc *auth.Service,
		courseSvc *course.Service,
		chatSvc *chat.Service,
		validate *validator.Validate,
		translator ut.Translator,
	) echoapi.ServerDeps {
		return echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			AuthSvc:    authSvc,
			CourseSvc:  courseSvc,
			ChatSvc:    chatSvc,
			Validate:   validate,
			Translator: translator,
		}
	}))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

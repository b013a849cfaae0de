package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/course"
	"github.com/trezcool/aicanvas/core/user"
	logsvc "github.com/trezcool/aicanvas/services/logger"
	"github.com/trezcool/aicanvas/services/pdftext"
	"github.com/trezcool/aicanvas/storage/database"
	sqlxrepos "github.com/trezcool/aicanvas/storage/database/sqlx"
	filestore "github.com/trezcool/aicanvas/storage/files"
)

func main() {
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(stdLogger, conf)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	files, err := filestore.NewStore(context.Background(), conf)
	if err != nil {
		logger.Fatal("setting up file store", err)
	}

	// start CLI
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	cli := commandLine{
		db:     db,
		usrSvc: usrSvc,
		courseSvc: course.NewService(
			db,
			sqlxrepos.NewCourseRepository(db),
			sqlxrepos.NewEnrollmentRepository(db),
			sqlxrepos.NewMaterialRepository(db),
			usrSvc,
			files,
			pdftext.NewExtractor(),
			logger,
		),
	}
	if err := cli.run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

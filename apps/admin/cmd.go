package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/aicanvas/core/course"
	"github.com/trezcool/aicanvas/core/user"
	"github.com/trezcool/aicanvas/storage/database"
)

var (
	migrateFunc  = database.RunMigrations // mockable
	readFileFunc = os.ReadFile            // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sqlx.DB
	usrSvc    *user.Service
	courseSvc *course.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -email EMAIL -role professor|student [-name NAME] - create a user, or rename an existing one")
	fmt.Println("  addmaterial -course COURSE_ID -file PATH [-name NAME] - attach a material file to a course")
	fmt.Println("  migrate COMMAND [ARGS...] - run a goose migration command (up, down, status, version, redo, ...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", "", "The user's role: professor or student.")
	addUserName := addUserCmd.String("name", "", "The user's display name.")

	addMaterialCmd := flag.NewFlagSet("addmaterial", flag.ContinueOnError)
	addMaterialCourse := addMaterialCmd.String("course", "", "The course ID.")
	addMaterialFile := addMaterialCmd.String("file", "", "Path of the material file.")
	addMaterialName := addMaterialCmd.String("name", "", "The material name. Defaults to the file name.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserRole == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserEmail, *addUserRole, *addUserName)
	case "addmaterial":
		if err := addMaterialCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addMaterialCourse == "" || *addMaterialFile == "" {
			addMaterialCmd.Usage()
			return errHelp
		}
		return cli.addMaterial(*addMaterialCourse, *addMaterialFile, *addMaterialName)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

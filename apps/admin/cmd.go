package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/ujuzi/core/account"
	"github.com/trezcool/ujuzi/core/course"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	accountSvc *account.Service
	courseSvc  *course.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createadmin -username USERNAME - create an admin account (password prompted)")
	fmt.Println("  createcourse -name NAME [-image REF] - create a course")
	fmt.Println("  migrate COMMAND [args] - run DB migrations (goose commands)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ExitOnError)
	createAdminUname := createAdminCmd.String("username", "", "The admin's username. The password will be prompted next.")

	createCourseCmd := flag.NewFlagSet("createcourse", flag.ExitOnError)
	createCourseName := createCourseCmd.String("name", "", "The course name.")
	createCourseImage := createCourseCmd.String("image", "", "An optional image reference.")

	switch args[1] {
	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminUname == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(*createAdminUname, string(pwd))
	case "createcourse":
		if err := createCourseCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createCourseName == "" {
			createCourseCmd.Usage()
			return errHelp
		}
		return cli.createCourse(*createCourseName, *createCourseImage)
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

package main

import (
	"log"
	"os"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/account"
	"github.com/trezcool/ujuzi/core/course"
	emailsvc "github.com/trezcool/ujuzi/services/email"
	"github.com/trezcool/ujuzi/storage/database"
	"github.com/trezcool/ujuzi/storage/database/sqlxrepos"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// start CLI
	cli := commandLine{
		db:         db.DB.DB,
		accountSvc: account.NewService(db, sqlxrepos.NewAccountRepository(db.DB), emailsvc.NewConsoleService(conf), conf),
		courseSvc:  course.NewService(db, sqlxrepos.NewCourseRepository(db.DB)),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

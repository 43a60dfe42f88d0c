package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/auth"
	"github.com/trezcool/campusboard/core/user"
	emailsvc "github.com/trezcool/campusboard/services/email"
	"github.com/trezcool/campusboard/storage/database"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	repos, err := database.Connect(context.Background(), conf)
	errAndDie(err)

	// set up services
	validate := core.NewValidator()
	authSvc := auth.NewService(repos.Sessions, repos.Users, conf)
	usrSvc := user.NewService(repos.Users, authSvc, emailsvc.NewConsoleService(conf), validate, conf)

	// start CLI
	cli := commandLine{
		conf:    conf,
		repos:   repos,
		usrSvc:  usrSvc,
		authSvc: authSvc,
		out:     os.Stdout,
	}
	code := 0
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			printErr(os.Stderr, err)
		}
		code = 1
	}
	if err := repos.Close(); err != nil {
		logger.Printf("closing database: %v", err)
	}
	os.Exit(code)
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

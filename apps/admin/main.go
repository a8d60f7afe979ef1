package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/darasa/core"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

var logger *logsvc.RollbarLogger

func main() {
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		stdLogger.Fatal(err)
	}
	logger = logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	errAndDie(database.CreateIfNotExist(context.Background(), conf))
	db, err := database.Open(conf)
	errAndDie(err)
	errAndDie(db.Ping())

	// start CLI
	cli := commandLine{
		db:        db,
		usrRepo:   sqlxrepos.NewUserRepository(db),
		classRepo: sqlxrepos.NewClassLevelRepository(db),
		subjRepo:  sqlxrepos.NewSubjectRepository(db),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}

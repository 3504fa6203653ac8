package main

import (
	"fmt"
	"os"

	"github.com/darasa-lms/darasa/core"
	logsvc "github.com/darasa-lms/darasa/services/logger"
	"github.com/darasa-lms/darasa/storage/database"
	gormrepos "github.com/darasa-lms/darasa/storage/database/gormdb"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewZapLogger(logsvc.NewZap(conf, "ADMIN"))

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	sqlDB, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	db, err := database.OpenGorm(sqlDB, conf, logger)
	if err != nil {
		_ = sqlDB.Close()
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:      sqlDB,
		usrRepo: gormrepos.NewUserRepository(db),
	}
	err = cli.run(os.Args)
	_ = sqlDB.Close()
	if err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

package main

import (
	"log"
	"os"

	"github.com/profpay/profpay/apps/shared"
	"github.com/profpay/profpay/core"
	cachesvc "github.com/profpay/profpay/services/cache"
	emailsvc "github.com/profpay/profpay/services/email"
	logsvc "github.com/profpay/profpay/services/logger"
	remindersvc "github.com/profpay/profpay/services/reminder"
	"github.com/profpay/profpay/storage/database"
)

var logger *logsvc.RollbarLogger

func main() {
	conf := core.NewConfig()

	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	// the CLI does not read stats
	svcs := shared.NewServices(db, cachesvc.NoopCache{}, conf, logger)
	validate, _ := shared.NewValidator()
	mailSvc := emailsvc.NewService(conf, logger)
	core.ParseEmailTemplates(conf, logger)

	// start CLI
	cli := commandLine{
		db:        db.DB,
		out:       os.Stdout,
		validate:  validate,
		usrSvc:    svcs.Users,
		faculties: svcs.Faculties,
		payers:    svcs.Payers,
		reminder:  remindersvc.NewService(svcs.Payers, svcs.Settings, mailSvc, logger),
		mailSvc:   mailSvc,
		seeder: database.Seeder{
			Conf:      conf,
			Logger:    logger,
			Users:     svcs.Users,
			Faculties: svcs.Faculties,
			Settings:  svcs.Settings,
		},
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("error: "+err.Error(), err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}

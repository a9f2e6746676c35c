package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/profpay/profpay/apps/api/echo"
	"github.com/profpay/profpay/apps/shared"
	"github.com/profpay/profpay/core"
	cachesvc "github.com/profpay/profpay/services/cache"
	emailsvc "github.com/profpay/profpay/services/email"
	logsvc "github.com/profpay/profpay/services/logger"
	metricsvc "github.com/profpay/profpay/services/metrics"
	remindersvc "github.com/profpay/profpay/services/reminder"
	"github.com/profpay/profpay/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	cache := cachesvc.New(context.Background(), conf, logger)
	defer cache.Close()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewService(conf, logger)
	}
	svcs := shared.NewServices(db, cache, conf, dbLogger)
	metrics := metricsvc.New()
	reminderSvc := remindersvc.NewService(svcs.Payers, svcs.Settings, mailSvc, logger, remindersvc.WithRecorder(metrics))

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := shared.NewValidator()

	core.ParseEmailTemplates(conf, logger)

	seeder := database.Seeder{Conf: conf, Logger: dbLogger, Users: svcs.Users, Faculties: svcs.Faculties, Settings: svcs.Settings}
	if err = seeder.Seed(context.Background(), time.Now()); err != nil {
		logger.Fatal(fmt.Sprintf("seeding database: %v", err), err)
	}

	if conf.ReminderSchedule != "" {
		scheduler, err := reminderSvc.Schedule(conf.ReminderSchedule)
		if err != nil {
			logger.Fatal(fmt.Sprintf("scheduling reminders: %v", err), err)
		}
		defer scheduler.Stop()
		logger.Info(fmt.Sprintf("reminders scheduled on %q", conf.ReminderSchedule))
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			Validate:    validate,
			Translator:  translator,
			Metrics:     metrics,
			UserSvc:     svcs.Users,
			FacultySvc:  svcs.Faculties,
			SettingsSvc: svcs.Settings,
			BudgetSvc:   svcs.Budget,
			PayerSvc:    svcs.Payers,
			StatsSvc:    svcs.Stats,
			AuditSvc:    svcs.Audit,
			ReminderSvc: reminderSvc,
			HealthCheck: func(ctx context.Context) error {
				return database.StatusCheck(ctx, db)
			},
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/trezcool/tutorhub/apps/api/echo"
	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/account"
	"github.com/trezcool/tutorhub/core/backend"
	"github.com/trezcool/tutorhub/core/dashboard"
	"github.com/trezcool/tutorhub/core/enroll"
	"github.com/trezcool/tutorhub/core/session"
	appfs "github.com/trezcool/tutorhub/fs"
	"github.com/trezcool/tutorhub/services/checkout"
	"github.com/trezcool/tutorhub/services/email"
	"github.com/trezcool/tutorhub/services/logger"
	"github.com/trezcool/tutorhub/services/metrics"
	"github.com/trezcool/tutorhub/storage/session"
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
	logger.Enable(conf.RollbarToken != "" && !conf.Debug)

	// set up the session store
	store, err := sessionstore.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up session store: %v", err), err)
	}
	defer func() {
		if err = store.Close(); err != nil {
			logger.Error("Failed to close session store", err)
		}
	}()

	recorder := metricsvc.NewRecorder("tutorhub")
	client := backend.NewClient(conf.Backend, recorder)
	mailSvc := emailsvc.NewService(conf, logger)
	gateway := checkout.NewGateway(conf)
	if err = gateway.Ready(); err != nil {
		logger.Warn(fmt.Sprintf("checkout gateway %s: %v", gateway.Name(), err))
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	account.InitValidators(validate, translator)
	enroll.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)
	account.LoadCommonPasswords(appfs.FS, appfs.CommonPasswords, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - prometheus

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("sessions").Set(conf.Sessions.Driver)
	expvar.NewString("gateway").Set(gateway.Name())
	http.Handle("/metrics", recorder.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	enrollSvc := enroll.NewService(conf, enroll.Deps{
		Backend:   client,
		Gateway:   gateway,
		Validator: validate,
		MailSvc:   mailSvc,
		Logger:    logger,
		Recorder:  recorder,
	})

	// drafts of sessions gone idle expire with them
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go enrollSvc.RunSweeper(sweepCtx, conf.Sessions.TTL)

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			Sessions:     session.NewFactory(store),
			AccountSvc:   account.NewService(client, validate, logger),
			EnrollSvc:    enrollSvc,
			DashboardSvc: dashboard.NewService(client, nil),
			Translator:   translator,
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

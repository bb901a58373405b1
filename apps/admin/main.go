package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/backend"
	"github.com/trezcool/tutorhub/storage/session"
	pgstore "github.com/trezcool/tutorhub/storage/session/postgres"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up the session store
	store, err := sessionstore.Open(context.Background(), conf)
	errAndDie(err)
	defer store.Close()

	var db *sql.DB
	if conf.Sessions.Driver == sessionstore.DriverPostgres {
		db, err = pgstore.Open(conf)
		errAndDie(err)
		defer db.Close()
		errAndDie(db.Ping())
	}

	// start CLI
	cli := commandLine{
		db:    db,
		store: store,
		auth:  backend.NewClient(conf.Backend, nil),
		out:   os.Stdout,
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

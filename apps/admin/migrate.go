package main

import (
	"errors"

	pgstore "github.com/trezcool/tutorhub/storage/session/postgres"
)

var (
	gooseRunFunc = pgstore.Migrate // mockable

	errNoDatabase = errors.New("migrations require SESSIONS_DRIVER=postgres")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(cli.db, args[0], arguments...)
}

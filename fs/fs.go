// Package appfs embeds the static assets shipped with the binaries.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* data/*
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
	CommonPasswords   = "data/common-passwords.txt"
)

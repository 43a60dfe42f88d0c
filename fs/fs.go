package appfs

import "embed"

// FS holds the files shipped inside the binaries: SQL migrations, email templates and static assets.
//go:embed migrations/*.sql templates/email/* assets/*
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
	CommonPasswordsGz = "assets/common-passwords.txt.gz"
)

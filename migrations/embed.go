// Package migrations compiles the SQL migration files into the binary
// so a deployment is just the executable plus config.yaml.
package migrations

import (
	"embed"

	"github.com/nerrad567/orchestream/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

// Importing this package (blank import from main) hands the embedded
// filesystem to the database package, which reads migrations from it
// at startup.
func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}

// Package migrations embeds the PostgreSQL schema.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Migration is one schema step.
type Migration struct {
	Version string
	Up      string
	Down    string
}

// All returns the migrations in version order.
func All() ([]Migration, error) {
	names, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, up := range names {
		version := strings.TrimSuffix(up, ".up.sql")
		upSQL, err := files.ReadFile(up)
		if err != nil {
			return nil, err
		}
		downSQL, err := files.ReadFile(version + ".down.sql")
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Version: version, Up: string(upSQL), Down: string(downSQL)})
	}
	return out, nil
}

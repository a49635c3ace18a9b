// Command devdb builds a local copy of the climate store for development and
// smoke tests. The server itself never writes to the store.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"surfsup-server/internal/fixture"
)

func main() {
	fs := flag.NewFlagSet("devdb", flag.ExitOnError)
	dbPath := fs.String("path", envOr("SQLITE_PATH", "hawaii.sqlite"), "database file to create")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-path FILE] <command>\n  seed    create the schema and load the sample dataset\n  schema  create the empty schema only\n", os.Args[0])
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	path := filepath.Clean(*dbPath)
	switch fs.Arg(0) {
	case "seed":
		if err := fixture.Create(path, true); err != nil {
			fmt.Fprintf(os.Stderr, "seed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("seeded %s\n", path)
	case "schema":
		if err := fixture.Create(path, false); err != nil {
			fmt.Fprintf(os.Stderr, "schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created schema in %s\n", path)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", fs.Arg(0))
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

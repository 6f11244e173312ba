package main

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"

	"haak-weather/internal/config"
	"haak-weather/internal/db"
	"haak-weather/internal/logging"
	"haak-weather/internal/migrate"
)

const usage = `usage: %s <command>
  migrate  apply pending schema migrations
  status   list migrations and whether they are applied
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{AppName: "haak-tools", Version: "dev", Level: cfg.LogLevel, Output: os.Stderr})

	conn, err := db.Open(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			logger.Error("db close", "err", closeErr)
		}
	}()

	switch os.Args[1] {
	case "migrate":
		if err := migrate.Run(conn, logger); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migrations applied")
	case "status":
		migrations, err := migrate.Status(conn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "status: %v\n", err)
			os.Exit(1)
		}
		if err := writeStatus(os.Stdout, migrations); err != nil {
			logger.Error("write status", "err", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func writeStatus(w io.Writer, migrations []migrate.Migration) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Version", "Name", "Applied"})
	rows := make([][]string, 0, len(migrations))
	for _, m := range migrations {
		applied := "no"
		if m.Applied {
			applied = "yes"
		}
		rows = append(rows, []string{m.Version, m.Name, applied})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

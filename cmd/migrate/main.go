package main

import (
	"flag"
	"fmt"
	"os"

	"referral/internal/infra/persistence/migrations"
)

func main() {
	databaseURL := flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL, defaults to $DATABASE_URL")
	direction := flag.String("direction", string(migrations.Up), "Migration direction (up, down)")
	list := flag.Bool("list", false, "List embedded migration versions and exit")
	flag.Parse()

	if *list {
		versions, err := migrations.Versions()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, version := range versions {
			fmt.Println(version)
		}

		return
	}

	if err := migrations.Run(*databaseURL, migrations.Direction(*direction)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Migrations applied (%s)\n", *direction)
}

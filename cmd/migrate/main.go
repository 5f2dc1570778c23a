package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"trove.dev/internal/database"
)

func main() {
	log.SetFlags(0)
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or DATABASE_URL")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|version]")
	}

	db, err := database.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	switch flag.Arg(0) {
	case "up":
		err = database.Migrate(db)
	case "down":
		err = database.Rollback(db)
	case "version":
		var (
			ver   uint
			dirty bool
		)
		ver, dirty, err = database.Version(db)
		if err == nil {
			fmt.Printf("version=%d dirty=%t\n", ver, dirty)
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

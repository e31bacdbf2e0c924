package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

func main() {
	// Best effort: a missing .env just means no overrides.
	godotenv.Load()

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(&tilesCmd{}, "")
	subcommands.Register(&warmCmd{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

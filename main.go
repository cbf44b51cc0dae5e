package main

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vodarchive/collate/internal/commands"
	"os"
	"time"
)

func main() {
	// results go to stdout, everything else to stderr
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	os.Exit(commands.Main(os.Args[1:], os.Stdout))
}

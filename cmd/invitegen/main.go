// Package main provides a CLI for generating invite codes without a running
// server, for printed cards or one-off distribution lists.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/invite-registry/internal/tools/invitegen"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := invitegen.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid flags")
	}

	if err := invitegen.Run(cfg, os.Stdout, time.Now().UTC(), nil); err != nil {
		log.Fatal().Err(err).Msg("invitegen failed")
	}
}

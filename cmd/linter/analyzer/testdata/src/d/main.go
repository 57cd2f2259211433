package main

import (
	"github.com/rs/zerolog/log"
)

func run() {
	log.Info().Msg("running")
	log.Fatal().Msg("stopped") // want "log.Fatal should only be used in main.main function"
}

func main() {
	run()
	log.Fatal().Msg("done")
}

package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/Yashasrn33/RPGAI/dialogueservice"
)

func main() {
	if err := dialogueservice.Run(); err != nil {
		log.Error().Err(err).Msg("rpgai-service exited with error")
		os.Exit(1)
	}
}

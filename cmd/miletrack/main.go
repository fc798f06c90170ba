package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/willrad86/auditproof-mileage/internal/cli"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

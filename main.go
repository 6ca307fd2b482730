package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sratabix/gifselector/internal"
	"github.com/sratabix/gifselector/pkg/logger"
)

var log = logger.Get("Main")

// main loads the user configuration, constructs the server and runs it
// until an interrupt is received.
func main() {
	configPath := flag.String("config", internal.DefaultConfigPath(), "path to the YAML configuration file")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		logger.SetMinLoggingLevel(logger.DEBUG.Level())
	}

	config := internal.GifselectorConfig{}
	if err := config.LoadFromFile(*configPath); err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go listenForInterrupt(cancel)

	if err := internal.New(config).Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Failed to run: %v\n", err)
		os.Exit(1)
	}

	log.Emit(logger.STOP, "Shutdown complete\n")
}

func listenForInterrupt(quitChannel context.CancelFunc) {
	exitChannel := make(chan os.Signal, 1)
	signal.Notify(exitChannel, os.Interrupt, syscall.SIGTERM)

	<-exitChannel
	quitChannel()
}

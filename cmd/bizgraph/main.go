package main

import (
	"os"

	"github.com/ooyales/it-biz-dev-lite-sub000/internal/logger"
)

func main() {
	logger.SetLogger(logger.NewConsoleLogger(os.Stderr, os.Getenv("LOG_LEVEL")))
	if err := newRootCmd(openFromConfig).Execute(); err != nil {
		os.Exit(1)
	}
}

package simulate

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/moodmarket/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends progress output to the console and to logFile. An
// empty logFile gets a timestamped name.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		logFile = "simulate_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Mood Market Simulator
=====================

Opens a market, places concurrent bets from many accounts, settles it and
checks that pools, fees and payouts add up.

Usage:
  go run cmd/simulate/main.go [options]

Options:
  -url string
        Base URL of a running service; empty runs an in-process service
  -accounts string
        Comma separated funded accounts (required with -url)
  -users int
        Number of generated accounts for the in-process service (default 50)
  -owner string
        Owner identity (default "owner")
  -oracle string
        Oracle identity (default "oracle")
  -bets int
        Number of bets to place (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -min-bet uint
        Minimum stake accepted by the service (default 1000000)
  -threshold uint
        Market threshold (default 50)
  -settle
        Wait for close, resolve and claim (default true)
  -poll duration
        Poll interval while waiting for close (default 5s)
  -timeout duration
        HTTP request timeout (default 30s)
  -seed uint
        Seed for generated bets (default: time based)
  -log string
        Log file for simulator output (default: simulate_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate against an in-process service
  go run cmd/simulate/main.go

  # Simulate against a running service with genesis funded accounts
  go run cmd/simulate/main.go -url http://localhost:9080 -accounts alice,bob,carol -settle=false
`)
}

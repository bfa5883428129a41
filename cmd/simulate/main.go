package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/okian/moodmarket/internal/simulate"
)

// Default configuration constants.
const (
	defaultUsers       = 50
	defaultBets        = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultMinimumBet  = 1_000_000
	defaultThreshold   = 50
	defaultTimeout     = 30 * time.Second
	defaultPoll        = 5 * time.Second
	defaultRunTimeout  = 10 * time.Minute
	localBalanceFactor = 1000 // minimum bets funded per generated account
)

func main() {
	var (
		baseURL   = flag.String("url", "", "Base URL of a running service; empty runs an in-process service")
		accounts  = flag.String("accounts", "", "Comma separated funded accounts (required with -url)")
		users     = flag.Int("users", defaultUsers, "Number of generated accounts for the in-process service")
		owner     = flag.String("owner", "owner", "Owner identity")
		oracle    = flag.String("oracle", "oracle", "Oracle identity")
		bets      = flag.Int("bets", defaultBets, "Number of bets to place")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		minBet    = flag.Uint64("min-bet", defaultMinimumBet, "Minimum stake accepted by the service")
		threshold = flag.Uint64("threshold", defaultThreshold, "Market threshold")
		settle    = flag.Bool("settle", true, "Wait for close, resolve and claim")
		poll      = flag.Duration("poll", defaultPoll, "Poll interval while waiting for close")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed      = flag.Uint64("seed", 0, "Seed for generated bets (default: time based)")
		logFile   = flag.String("log", "", "Log file for simulator output (default: simulate_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := simulate.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	config := &simulate.Config{
		BaseURL:      *baseURL,
		Owner:        *owner,
		Oracle:       *oracle,
		Bets:         *bets,
		Workers:      *workers,
		MinimumBet:   *minBet,
		Threshold:    *threshold,
		Settle:       *settle,
		Timeout:      *timeout,
		PollInterval: *poll,
		Seed:         *seed,
		Verbose:      *verbose,
	}
	if *accounts != "" {
		config.Accounts = strings.Split(*accounts, ",")
	}

	if err := run(config, *users); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// run simulates against config.BaseURL, or against an in-process service
// with generated accounts when no URL is set.
func run(config *simulate.Config, users int) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	var wait simulate.Waiter
	if config.BaseURL == "" {
		config.Accounts = simulate.NewAccounts(users)
		local, err := simulate.StartLocal(ctx, config.Accounts, config.MinimumBet*localBalanceFactor)
		if err != nil {
			return err
		}
		defer local.Close()
		config.BaseURL = local.URL
		config.Owner = local.Settings.Owner
		config.Oracle = local.Settings.Oracle
		config.MinimumBet = local.Settings.MinimumBet
		wait = local.Waiter()
	}

	runner, err := simulate.NewRunner(config, wait)
	if err != nil {
		return err
	}
	report, err := runner.Run(ctx)
	if report != nil {
		simulate.LogReport(report)
	}
	return err
}

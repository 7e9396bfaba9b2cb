package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/wikimedia-contest/jury/internal/seed"
)

// Default configuration constants.
const (
	defaultNumSubmissions = 1000
	defaultTopN           = 50
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 30 * time.Second
	defaultRunTimeout     = 10 * time.Minute
)

func main() {
	var (
		baseURL        = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numSubmissions = flag.Int("submissions", defaultNumSubmissions, "Number of submissions to create")
		topN           = flag.Int("top", defaultTopN, "Number of top entries to fetch from the ranking")
		workers        = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout        = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile     = flag.String("output", "", "Output file for generated intakes (default: seed_intakes_TIMESTAMP.json)")
		logFile        = flag.String("log", "", "Log file for seeding output (default: seed_log_TIMESTAMP.log)")
		screeners      = flag.String("screeners", "screener-a,screener-b", "Comma-separated screener reviewer ids")
		panelists      = flag.String("panelists", "panelist-a,panelist-b,panelist-c", "Comma-separated panelist reviewer ids")
		verbose        = flag.Bool("verbose", false, "Enable verbose logging")
		help           = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	if err := seed.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &seed.Config{
		BaseURL:        *baseURL,
		NumSubmissions: *numSubmissions,
		TopN:           *topN,
		Workers:        *workers,
		Timeout:        *timeout,
		OutputFile:     *outputFile,
		LogFile:        *logFile,
		Screeners:      strings.Split(*screeners, ","),
		Panelists:      strings.Split(*panelists, ","),
		Verbose:        *verbose,
	}

	if err := seed.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		return
	}
}

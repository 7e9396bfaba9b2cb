package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wikimedia-contest/jury/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// settleDelay gives the intake check workers time to flush automated
// screening records before judgments land on top of them.
const settleDelay = 2 * time.Second

// Run executes the complete seeding pipeline: create submissions,
// screen them, score the eligible ones, and verify the ranking.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting jury seeding run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("submissions", config.NumSubmissions),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	intakes, err := generateIntakes(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("intake generation failed: %w", err)
	}

	submissions, err := createSubmissions(ctx, config, intakes, stats)
	if err != nil {
		return fmt.Errorf("submission creation failed: %w", err)
	}

	logger.Get().Info(ctx, "waiting for intake checks to settle")
	time.Sleep(settleDelay)

	if err := screenSubmissions(ctx, config, submissions, stats); err != nil {
		return fmt.Errorf("screening failed: %w", err)
	}

	if err := scoreSubmissions(ctx, config, submissions, stats); err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}

	ranks, err := retrieveRanks(ctx, config, submissions, stats)
	if err != nil {
		return fmt.Errorf("rank retrieval failed: %w", err)
	}

	ranking, err := getRanking(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("ranking retrieval failed: %w", err)
	}

	if err := verifyResults(config, ranks, ranking); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	if err := saveIntakesToFile(ctx, config, intakes); err != nil {
		logger.Get().Warn(ctx, "failed to save intakes to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "seeding completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Any 200 counts as healthy, the endpoint serves Prometheus
	// metrics.
	if resp.StatusCode != statusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveIntakesToFile saves the generated intakes to a JSON file.
func saveIntakesToFile(ctx context.Context, config *Config, intakes []Intake) error {
	if len(intakes) == 0 {
		return fmt.Errorf("no intakes to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "seed_intakes_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(intakes); err != nil {
		return fmt.Errorf("failed to write intakes: %w", err)
	}

	logger.Get().Info(ctx, "intakes saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final seeding statistics.
func displayFinalStats(stats *Stats) {
	var submissionsPerSecond float64
	if stats.Duration > 0 {
		submissionsPerSecond = float64(stats.SubmissionsCreated) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("submissionsGenerated", stats.SubmissionsGenerated),
		logger.Int("submissionsCreated", stats.SubmissionsCreated),
		logger.Int("submissionsFailed", stats.SubmissionsFailed),
		logger.Int("screeningsRecorded", stats.ScreeningsRecorded),
		logger.Int("screeningsFailed", stats.ScreeningsFailed),
		logger.Int("eligibleSubmissions", stats.EligibleSubmissions),
		logger.Int("scoringsRecorded", stats.ScoringsRecorded),
		logger.Int("scoringsFailed", stats.ScoringsFailed),
		logger.Int("ranksRetrieved", stats.RanksRetrieved),
		logger.Int("rankingEntries", stats.RankingEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("submissionsPerSecond", submissionsPerSecond))
}

package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// retrieveRanks retrieves individual rank entries for the given
// submissions concurrently.
func retrieveRanks(ctx context.Context, config *Config, submissions []Submission, stats *Stats) ([]Entry, error) {
	log.Printf("🏆 Retrieving ranks for %d submissions with %d workers...", len(submissions), config.Workers)

	client := newHTTPClient(config.Timeout)

	ranks := make([]Entry, len(submissions))
	var (
		retrieved int64
		failed    int64
	)

	indexChan := make(chan int, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					sub := submissions[index]
					entry, err := retrieveSingleRank(ctx, client, config.BaseURL, sub.ID)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to get rank for %s: %v", sub.Code, err)
						}
					} else {
						ranks[index] = entry
						atomic.AddInt64(&retrieved, 1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range submissions {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	// Filter out empty entries (failed retrievals or unranked
	// submissions).
	validRanks := make([]Entry, 0, len(ranks))
	for _, entry := range ranks {
		if entry.SubmissionID != "" {
			validRanks = append(validRanks, entry)
		}
	}

	stats.RanksRetrieved = len(validRanks)

	log.Printf(`✅ Rank retrieval completed:
   Retrieved: %d
   Failed or unranked: %d
`, len(validRanks), int(atomic.LoadInt64(&failed)))

	return validRanks, nil
}

// retrieveSingleRank retrieves the rank entry for one submission.
func retrieveSingleRank(ctx context.Context, client *HTTPClient, baseURL, submissionID string) (Entry, error) {
	url := fmt.Sprintf("%s/ranking/%s", baseURL, submissionID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return Entry{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != statusOK {
		return Entry{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var entry Entry
	if err := json.Unmarshal(body, &entry); err != nil {
		return Entry{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return entry, nil
}

// getRanking retrieves the top N ranking entries.
func getRanking(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	log.Printf("🥇 Getting top %d ranking entries...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/ranking?limit=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != statusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var ranking []Entry
	if err := json.Unmarshal(body, &ranking); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.RankingEntries = len(ranking)
	log.Printf("✅ Retrieved %d ranking entries", len(ranking))

	return ranking, nil
}

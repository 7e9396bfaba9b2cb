package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTP status code constants.
const (
	statusOK      = 200
	statusCreated = 201
)

const reviewerHeader = "X-Reviewer-ID"

// HTTPClient wraps http.Client with a timeout.
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body. A non-empty reviewer
// is sent as the reviewer identity header.
func (c *HTTPClient) Post(ctx context.Context, url, reviewer string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if reviewer != "" {
		req.Header.Set(reviewerHeader, reviewer)
	}
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// createSubmissions posts the intakes concurrently using a worker pool
// and returns the created submissions in intake order.
func createSubmissions(ctx context.Context, config *Config, intakes []Intake, stats *Stats) ([]Submission, error) {
	log.Printf("📤 Creating %d submissions with %d workers...", len(intakes), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/submissions"

	submissions := make([]Submission, len(intakes))
	var (
		created int64
		failed  int64
	)

	var lastReport time.Time
	reportInterval := 1 * time.Second

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
					sub, err := createSingleSubmission(ctx, client, url, intakes[index])
					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to create submission %d: %v", index, err)
						}
					} else {
						submissions[index] = sub
						atomic.AddInt64(&created, 1)
					}

					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						done := atomic.LoadInt64(&created)
						fail := atomic.LoadInt64(&failed)
						log.Printf("📊 Progress: %d/%d created (failed: %d)", done+fail, len(intakes), fail)
					}
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range intakes {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.SubmissionsCreated = int(atomic.LoadInt64(&created))
	stats.SubmissionsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Submission creation completed:
   Created: %d
   Failed: %d
`, stats.SubmissionsCreated, stats.SubmissionsFailed)

	return submissions, nil
}

// createSingleSubmission posts one intake and parses the created
// submission.
func createSingleSubmission(ctx context.Context, client *HTTPClient, url string, intake Intake) (Submission, error) {
	resp, err := client.Post(ctx, url, "", intake)
	if err != nil {
		return Submission{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Submission{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != statusCreated {
		return Submission{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var sub Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		return Submission{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return sub, nil
}

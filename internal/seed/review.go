package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Screening outcome cases, drawn once per submission so the screener
// pair mostly agrees and the quorum resolves.
const (
	outcomeDivisor   = 20
	caseBothReject   = 0 // both screeners mark ineligible
	caseSecondReject = 1 // rejection only after an approval, keeps quorum open
	caseSplit        = 2 // one approval, one rejection
)

// Rubric scoring profile cases.
const (
	scoreProfileDivisor = 8
	caseEliteScore      = 0
	caseWeakScore       = 1
)

var screeningFlags = []string{"copyright_concern", "not_original", "offensive_content"}

var rubricCriteria = []string{"identity_fit", "recall", "originality", "clarity", "adaptability"}

type screeningJudgment struct {
	Decision string   `json:"decision"`
	Flags    []string `json:"flags,omitempty"`
	Note     string   `json:"note,omitempty"`
}

type scoringJudgment struct {
	Phase  int            `json:"phase"`
	Scores map[string]int `json:"scores"`
	Note   string         `json:"note,omitempty"`
}

// screenSubmissions records screening judgments from each configured
// screener for every created submission.
func screenSubmissions(ctx context.Context, config *Config, submissions []Submission, stats *Stats) error {
	log.Printf("🔎 Screening %d submissions with %d screeners...", len(submissions), len(config.Screeners))

	client := newHTTPClient(config.Timeout)

	var (
		recorded int64
		failed   int64
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
					if sub.ID == "" {
						continue
					}
					url := config.BaseURL + "/submissions/" + sub.ID + "/screening"
					for _, req := range screeningPlan(config.Screeners) {
						if err := postJudgment(ctx, client, url, req.reviewer, req.body); err != nil {
							atomic.AddInt64(&failed, 1)
							if config.Verbose {
								log.Printf("⚠️  Screening failed for %s: %v", sub.Code, err)
							}
							continue
						}
						atomic.AddInt64(&recorded, 1)
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

	stats.ScreeningsRecorded = int(atomic.LoadInt64(&recorded))
	stats.ScreeningsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Screening completed:
   Recorded: %d
   Failed: %d
`, stats.ScreeningsRecorded, stats.ScreeningsFailed)

	return nil
}

type plannedJudgment struct {
	reviewer string
	body     screeningJudgment
}

// screeningPlan draws one outcome and expands it into the per-screener
// judgments that realize it.
func screeningPlan(screeners []string) []plannedJudgment {
	if len(screeners) < 2 {
		screeners = []string{"screener-a", "screener-b"}
	}
	first, second := screeners[0], screeners[1]

	switch randomInt(outcomeDivisor) {
	case caseBothReject:
		flag := screeningFlags[randomInt(int64(len(screeningFlags)))]
		return []plannedJudgment{
			{first, screeningJudgment{Decision: "ineligible", Flags: []string{flag}}},
			{second, screeningJudgment{Decision: "ineligible", Flags: []string{flag}, Note: "agreed with first screener"}},
		}
	case caseSecondReject, caseSplit:
		return []plannedJudgment{
			{first, screeningJudgment{Decision: "eligible"}},
			{second, screeningJudgment{Decision: "ineligible", Flags: []string{"copyright_concern"}}},
		}
	default:
		return []plannedJudgment{
			{first, screeningJudgment{Decision: "eligible"}},
			{second, screeningJudgment{Decision: "eligible", Note: "clean clip"}},
		}
	}
}

// scoreSubmissions records phase 1 scorecards from every panelist for
// each submission that reached the scoring stage.
func scoreSubmissions(ctx context.Context, config *Config, submissions []Submission, stats *Stats) error {
	eligible, err := filterEligible(ctx, config, submissions)
	if err != nil {
		return err
	}
	stats.EligibleSubmissions = len(eligible)

	log.Printf("🎼 Scoring %d eligible submissions with %d panelists...", len(eligible), len(config.Panelists))

	client := newHTTPClient(config.Timeout)

	var (
		recorded int64
		failed   int64
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
					sub := eligible[index]
					url := config.BaseURL + "/submissions/" + sub.ID + "/scores"
					for _, panelist := range config.Panelists {
						body := scoringJudgment{Phase: 1, Scores: generateScorecard()}
						if err := postJudgment(ctx, client, url, panelist, body); err != nil {
							atomic.AddInt64(&failed, 1)
							if config.Verbose {
								log.Printf("⚠️  Scoring failed for %s: %v", sub.Code, err)
							}
							continue
						}
						atomic.AddInt64(&recorded, 1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range eligible {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.ScoringsRecorded = int(atomic.LoadInt64(&recorded))
	stats.ScoringsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Scoring completed:
   Eligible: %d
   Recorded: %d
   Failed: %d
`, stats.EligibleSubmissions, stats.ScoringsRecorded, stats.ScoringsFailed)

	return nil
}

// filterEligible re-reads each submission and keeps the ones that
// entered the first scoring phase.
func filterEligible(ctx context.Context, config *Config, submissions []Submission) ([]Submission, error) {
	client := newHTTPClient(config.Timeout)

	eligible := make([]Submission, 0, len(submissions))
	for _, sub := range submissions {
		if sub.ID == "" {
			continue
		}
		resp, err := client.Get(ctx, config.BaseURL+"/submissions/"+sub.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read submission %s: %w", sub.Code, err)
		}
		body, err := readResponseBody(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to read response for %s: %w", sub.Code, err)
		}
		if resp.StatusCode != statusOK {
			continue
		}
		var current Submission
		if err := json.Unmarshal(body, &current); err != nil {
			return nil, fmt.Errorf("failed to parse submission %s: %w", sub.Code, err)
		}
		if current.Status == "scoring_phase_1" {
			eligible = append(eligible, current)
		}
	}
	return eligible, nil
}

// generateScorecard produces a full rubric scorecard with a varied
// quality distribution.
func generateScorecard() map[string]int {
	base := 4 + int(randomInt(4)) // 4..7, the common band
	switch randomInt(scoreProfileDivisor) {
	case caseEliteScore:
		base = 8 + int(randomInt(3)) // 8..10, rare
	case caseWeakScore:
		base = int(randomInt(3)) // 0..2, rare
	}

	scores := make(map[string]int, len(rubricCriteria))
	for _, criterion := range rubricCriteria {
		v := base + int(randomInt(3)) - 1 // jitter by -1..+1
		if v < 0 {
			v = 0
		}
		if v > 10 {
			v = 10
		}
		scores[criterion] = v
	}
	return scores
}

// postJudgment posts one judgment body and checks for a created status.
func postJudgment(ctx context.Context, client *HTTPClient, url, reviewer string, body interface{}) error {
	resp, err := client.Post(ctx, url, reviewer, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	respBody, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != statusCreated {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

package seed

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL        string        // Base URL of the service
	NumSubmissions int           // Number of submissions to create
	TopN           int           // Number of ranking entries to fetch
	Workers        int           // Number of concurrent workers
	Timeout        time.Duration // HTTP request timeout
	OutputFile     string        // Output file for generated intakes
	LogFile        string        // Log file for seeding output
	Screeners      []string      // Reviewer ids used for screening
	Panelists      []string      // Reviewer ids used for scoring
	Verbose        bool          // Enable verbose logging
}

// Intake is the submission payload posted to the service.
type Intake struct {
	SubmitterName    string `json:"submitter_name"`
	SubmitterEmail   string `json:"submitter_email"`
	SubmitterCountry string `json:"submitter_country"`
	CreationProcess  string `json:"creation_process"`
	Audio            Audio  `json:"audio"`
	Token            string `json:"token,omitempty"`
}

// Audio carries the clip metadata for an intake.
type Audio struct {
	FileRef    string `json:"file_ref"`
	Format     string `json:"format"`
	DurationMS int64  `json:"duration_ms"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	SizeBytes  int64  `json:"size_bytes"`
}

// Submission is the service's view of a created submission.
type Submission struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Status string `json:"status"`
}

// Entry is a ranking entry returned by the service.
type Entry struct {
	Rank         int     `json:"rank"`
	SubmissionID string  `json:"submission_id"`
	Score        float64 `json:"score"`
}

// Stats holds seeding run statistics.
type Stats struct {
	SubmissionsGenerated int
	SubmissionsCreated   int
	SubmissionsFailed    int
	ScreeningsRecorded   int
	ScreeningsFailed     int
	ScoringsRecorded     int
	ScoringsFailed       int
	EligibleSubmissions  int
	RanksRetrieved       int
	RankingEntries       int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}

package model

import "time"

// AudioMeta describes the uploaded audio file as reported at intake.
// The file itself lives in external storage; only the reference and
// measured properties flow through this service.
type AudioMeta struct {
	FileRef    string // opaque storage reference
	Format     string // container/codec label, e.g. "ogg", "wav", "mp3"
	DurationMS int64
	SampleRate int // Hz
	Channels   int
	SizeBytes  int64
}

// Submission is a single contest entry under review.
type Submission struct {
	ID   string // uuid
	Code string // human-facing submission code, e.g. "SL-1A2B3C4D"

	// Submitter identity fields, delivered pre-validated by the intake
	// collaborator.
	SubmitterName    string
	SubmitterEmail   string
	SubmitterCountry string

	Audio AudioMeta

	// Free-text answers about the creation process.
	CreationProcess string

	Status    Status
	CreatedAt time.Time

	// Derived, never authoritative: recomputed from the judgment journal
	// on every accepted scoring judgment.
	ScoreOverall float64
	HasOverall   bool
	ScoreByPhase map[Phase]float64
}

// Clone returns a deep copy, so stores can hand out submissions without
// sharing the phase-score map.
func (s *Submission) Clone() *Submission {
	cp := *s
	if s.ScoreByPhase != nil {
		cp.ScoreByPhase = make(map[Phase]float64, len(s.ScoreByPhase))
		for k, v := range s.ScoreByPhase {
			cp.ScoreByPhase[k] = v
		}
	}
	return &cp
}

// IntakeCheck is the payload flowing through the automated-validation
// queue: everything a worker needs to flag audio problems.
type IntakeCheck struct {
	SubmissionID string
	Audio        AudioMeta
	EnqueuedAt   time.Time
}

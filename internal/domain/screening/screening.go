// Package screening aggregates eligibility judgments into a screening
// summary and decides when the quorum rule triggers a status transition.
// Every function here is a pure computation over journal records; the
// app service owns reading the journal and applying the transition.
package screening

import (
	"fmt"
	"sort"

	"github.com/wikimedia-contest/jury/internal/domain/model"
)

// DefaultQuorum is the number of agreeing active reviewer judgments that
// triggers the automatic screening transition.
const DefaultQuorum = 2

// Automated flag codes raised by the intake validation workers.
const (
	FlagDurationOutOfRange  = "duration_out_of_range"
	FlagSampleRateTooLow    = "sample_rate_too_low"
	FlagChannelsUnsupported = "channels_unsupported"
	FlagFileTooLarge        = "file_too_large"
	FlagFormatUnsupported   = "format_unsupported"
)

// Manual flag codes reviewers may raise.
const (
	FlagCopyrightConcern = "copyright_concern"
	FlagNotOriginal      = "not_original"
	FlagOffensiveContent = "offensive_content"
	FlagTextOrSpeech     = "text_or_speech"
	FlagAlreadySubmitted = "already_submitted"
)

// allowedFlags is the merged automated + manual vocabulary. Judgments
// carrying any other code are rejected before insertion.
var allowedFlags = map[string]bool{
	FlagDurationOutOfRange:  true,
	FlagSampleRateTooLow:    true,
	FlagChannelsUnsupported: true,
	FlagFileTooLarge:        true,
	FlagFormatUnsupported:   true,
	FlagCopyrightConcern:    true,
	FlagNotOriginal:         true,
	FlagOffensiveContent:    true,
	FlagTextOrSpeech:        true,
	FlagAlreadySubmitted:    true,
}

// ValidateFlags rejects flag codes outside the allow-listed vocabulary.
func ValidateFlags(flags []string) error {
	for _, f := range flags {
		if !allowedFlags[f] {
			return fmt.Errorf("%w: %q", ErrUnknownFlag, f)
		}
	}
	return nil
}

// Summary is the aggregated screening view of a submission.
type Summary struct {
	// DecisionCounts counts active human judgments per decision.
	DecisionCounts map[model.Decision]int
	// Flags is the union of flag codes across active judgments,
	// system records included, sorted for stable output.
	Flags []string
}

// Summarize computes the screening summary from journal records.
// Only active records contribute; system records contribute flags but
// never decisions.
func Summarize(records []model.Judgment) Summary {
	counts := map[model.Decision]int{
		model.DecisionEligible:   0,
		model.DecisionIneligible: 0,
	}
	flagSet := map[string]bool{}

	for i := range records {
		r := &records[i]
		if r.Kind != model.KindScreening || !r.Active {
			continue
		}
		for _, f := range r.Flags {
			flagSet[f] = true
		}
		if r.System() || !r.Decision.Valid() {
			continue
		}
		counts[r.Decision]++
	}

	flags := make([]string, 0, len(flagSet))
	for f := range flagSet {
		flags = append(flags, f)
	}
	sort.Strings(flags)

	return Summary{DecisionCounts: counts, Flags: flags}
}

// Outcome describes the result of a quorum evaluation.
type Outcome struct {
	Transition bool
	Target     model.Status
}

// Evaluate applies the quorum rule after a judgment carrying decision has
// been inserted: the inserted decision wins when it is the one crossing
// the threshold. Counts are taken from the post-insert active records, so
// callers must query the journal after the append. System records are
// excluded from counting.
func Evaluate(records []model.Judgment, quorum int, inserted model.Decision) Outcome {
	if quorum <= 0 {
		quorum = DefaultQuorum
	}
	if !inserted.Valid() {
		return Outcome{}
	}

	s := Summarize(records)
	if s.DecisionCounts[inserted] < quorum {
		return Outcome{}
	}

	target := model.StatusScoringPhase1
	if inserted == model.DecisionIneligible {
		target = model.StatusIneligible
	}
	return Outcome{Transition: true, Target: target}
}

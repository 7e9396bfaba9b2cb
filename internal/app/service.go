// Package service provides the core review service that implements the
// dependencies required by the HTTP API: submission intake, screening
// and scoring judgment recording, quorum and status transitions, and
// the derived score aggregates.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	checkqueue "github.com/wikimedia-contest/jury/internal/adapters/mq/queue"
	workerpool "github.com/wikimedia-contest/jury/internal/adapters/mq/worker"
	repository "github.com/wikimedia-contest/jury/internal/adapters/repository"
	"github.com/wikimedia-contest/jury/internal/domain/access"
	"github.com/wikimedia-contest/jury/internal/domain/dedupe"
	"github.com/wikimedia-contest/jury/internal/domain/model"
	"github.com/wikimedia-contest/jury/internal/domain/rubric"
	"github.com/wikimedia-contest/jury/internal/domain/scoring"
	"github.com/wikimedia-contest/jury/internal/domain/screening"
	"github.com/wikimedia-contest/jury/pkg/logger"
	"github.com/wikimedia-contest/jury/pkg/metrics"
)

// Intake is what the submission collaborator delivers for one entry.
type Intake struct {
	SubmitterName    string
	SubmitterEmail   string
	SubmitterCountry string
	CreationProcess  string
	Audio            model.AudioMeta

	// Token is an optional idempotency token. Replays with the same
	// token are acknowledged without creating a second submission.
	Token string
}

// keyedMutex serializes work per submission id. The quorum evaluation
// and the score recompute both read the journal and write back derived
// state, so concurrent judgments on one submission must not interleave.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Service implements the API dependencies for the review system.
type Service struct {
	mu sync.RWMutex

	// Core components
	journal     repository.Journal
	submissions repository.Submissions
	ranking     repository.Ranking
	deduper     dedupe.Deduper
	checkQueue  checkqueue.Queue
	workerPool  *workerpool.Pool
	caps        access.Capabilities
	rubric      *rubric.Rubric

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	quorum      int
	limits      screening.AudioLimits
	screeners   []string
	panelists   []string
	admins      []string

	subLocks *keyedMutex

	// State
	started bool
	stopCh  chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of automated screening workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the intake check queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithQuorum sets the number of agreeing screening judgments that move
// a submission out of screening.
func WithQuorum(quorum int) Option {
	return func(s *Service) {
		if quorum > 0 {
			s.quorum = quorum
		}
	}
}

// WithRubric replaces the built-in rubric.
func WithRubric(r *rubric.Rubric) Option {
	return func(s *Service) {
		if r != nil {
			s.rubric = r
		}
	}
}

// WithAudioLimits sets the bounds automated screening enforces.
func WithAudioLimits(limits screening.AudioLimits) Option {
	return func(s *Service) {
		s.limits = limits
	}
}

// WithRoles sets the reviewer role memberships. Empty lists leave the
// capability open to any identified reviewer.
func WithRoles(screeners, panelists, admins []string) Option {
	return func(s *Service) {
		s.screeners = screeners
		s.panelists = panelists
		s.admins = admins
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   100000,
		dedupeSize:  50000,
		quorum:      screening.DefaultQuorum,
		rubric:      rubric.Default(),
		subLocks:    newKeyedMutex(),
		stopCh:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting review service...")

	s.journal = repository.NewMemoryJournal()
	s.submissions = repository.NewSubmissionStore()
	s.ranking = repository.NewRankStore()
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.checkQueue = checkqueue.NewInMemoryQueue(
		checkqueue.WithCapacity(s.queueSize),
		checkqueue.WithBufferSize(s.queueSize),
	)
	s.caps = access.NewStaticProvider(
		access.WithScreeners(s.screeners),
		access.WithPanelists(s.panelists),
		access.WithAdmins(s.admins),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.checkQueue, s, s.limits)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "review service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("quorum", s.quorum),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping review service...")

	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(context.Background())
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "review service stopped")
}

// newCode derives the human-facing submission code from the uuid.
func newCode(id uuid.UUID) string {
	return "SL-" + strings.ToUpper(id.String()[:8])
}

// CreateSubmission registers a new entry and queues its automated audio
// check. A full check queue rejects the intake with ErrBackpressure;
// the collaborator retries rather than losing the check.
func (s *Service) CreateSubmission(ctx context.Context, in Intake) (*model.Submission, error) {
	if in.SubmitterEmail == "" || in.Audio.FileRef == "" {
		return nil, fmt.Errorf("%w: submitter email and audio file are required", ErrValidation)
	}

	if in.Token != "" && s.deduper.SeenAndRecord(ctx, in.Token) {
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate intake token, skipping",
			logger.String("token", in.Token),
		)
		return nil, fmt.Errorf("%w: intake token already used", ErrValidation)
	}

	id := uuid.New()
	sub := &model.Submission{
		ID:               id.String(),
		Code:             newCode(id),
		SubmitterName:    in.SubmitterName,
		SubmitterEmail:   in.SubmitterEmail,
		SubmitterCountry: in.SubmitterCountry,
		CreationProcess:  in.CreationProcess,
		Audio:            in.Audio,
		Status:           model.StatusScreening,
		CreatedAt:        time.Now().UTC(),
	}

	check := model.IntakeCheck{
		SubmissionID: sub.ID,
		Audio:        sub.Audio,
		EnqueuedAt:   time.Now().UTC(),
	}
	if !s.checkQueue.Enqueue(ctx, check) {
		if in.Token != "" {
			s.deduper.Unrecord(ctx, in.Token)
		}
		return nil, fmt.Errorf("%w: check queue full", ErrBackpressure)
	}

	if err := s.submissions.Create(ctx, sub); err != nil {
		if in.Token != "" {
			s.deduper.Unrecord(ctx, in.Token)
		}
		return nil, fmt.Errorf("creating submission: %w", err)
	}

	metrics.RecordSubmissionCreated()
	s.logger.Info(ctx, "submission created",
		logger.String("submission_id", sub.ID),
		logger.String("code", sub.Code),
	)
	return sub.Clone(), nil
}

// RecordScreeningJudgment inserts a human screening judgment and applies
// the quorum rule. Screening judgments are accepted in any status; the
// status transition fires at most once, on the judgment whose decision
// crosses the quorum while the submission still sits in screening.
func (s *Service) RecordScreeningJudgment(ctx context.Context, reviewer, submissionID string, decision model.Decision, flags []string, note string) (model.Judgment, error) {
	if reviewer == "" {
		metrics.RecordJudgmentRejected("anonymous")
		return model.Judgment{}, fmt.Errorf("%w: reviewer identity is required", ErrValidation)
	}
	if !s.caps.CanScreen(ctx, reviewer) {
		metrics.RecordJudgmentRejected("permission")
		return model.Judgment{}, fmt.Errorf("%w: %s may not screen", ErrPermission, reviewer)
	}
	if !decision.Valid() {
		metrics.RecordJudgmentRejected("decision")
		return model.Judgment{}, fmt.Errorf("%w: unknown decision %q", ErrValidation, decision)
	}
	if err := screening.ValidateFlags(flags); err != nil {
		metrics.RecordJudgmentRejected("flags")
		return model.Judgment{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	unlock := s.subLocks.lock(submissionID)
	defer unlock()

	if _, err := s.submissions.Get(ctx, submissionID); err != nil {
		return model.Judgment{}, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}

	if err := s.supersede(ctx, repository.Filter{
		SubmissionID: submissionID,
		Kind:         model.KindScreening,
		Reviewer:     reviewer,
		ActiveOnly:   true,
	}); err != nil {
		return model.Judgment{}, err
	}

	rec := model.Judgment{
		SubmissionID: submissionID,
		Reviewer:     reviewer,
		Kind:         model.KindScreening,
		Decision:     decision,
		Flags:        flags,
		Note:         note,
	}
	id, err := s.journal.Append(ctx, rec)
	if err != nil {
		return model.Judgment{}, fmt.Errorf("appending screening judgment: %w", err)
	}
	rec.ID = id
	rec.Active = true
	metrics.RecordJudgmentRecorded(string(model.KindScreening))

	// Quorum is evaluated on the post-insert active records; the
	// inserted decision is the only one that can fire a transition.
	active, err := s.journal.Query(ctx, repository.Filter{
		SubmissionID: submissionID,
		Kind:         model.KindScreening,
		ActiveOnly:   true,
	})
	if err != nil {
		return model.Judgment{}, fmt.Errorf("reading screening records: %w", err)
	}
	outcome := screening.Evaluate(active, s.quorum, decision)
	if outcome.Transition {
		err := s.submissions.SetStatus(ctx, submissionID, model.StatusScreening, outcome.Target)
		switch {
		case err == nil:
			s.logger.Info(ctx, "screening quorum reached",
				logger.String("submission_id", submissionID),
				logger.String("target", string(outcome.Target)),
			)
		case errors.Is(err, repository.ErrConflict):
			// Already transitioned; late judgments still land in the
			// journal but never move the status again.
		default:
			return model.Judgment{}, fmt.Errorf("transitioning submission: %w", err)
		}
	}

	return rec, nil
}

// RecordSystemScreening appends an automated screening record carrying
// flags only. System records never count toward the quorum, so there is
// no transition to evaluate.
func (s *Service) RecordSystemScreening(ctx context.Context, submissionID string, flags []string) error {
	if err := screening.ValidateFlags(flags); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	unlock := s.subLocks.lock(submissionID)
	defer unlock()

	if err := s.supersede(ctx, repository.Filter{
		SubmissionID: submissionID,
		Kind:         model.KindScreening,
		ActiveOnly:   true,
		SystemOnly:   true,
	}); err != nil {
		return err
	}

	rec := model.Judgment{
		SubmissionID: submissionID,
		Kind:         model.KindScreening,
		Flags:        flags,
	}
	if _, err := s.journal.Append(ctx, rec); err != nil {
		return fmt.Errorf("appending system screening record: %w", err)
	}
	metrics.RecordJudgmentRecorded("system_screening")
	return nil
}

// RecordScoringJudgment inserts a panelist scorecard for the submission's
// open phase and recomputes the derived aggregates.
func (s *Service) RecordScoringJudgment(ctx context.Context, reviewer, submissionID string, phase model.Phase, scores map[string]int, note string) (model.Judgment, error) {
	if reviewer == "" {
		metrics.RecordJudgmentRejected("anonymous")
		return model.Judgment{}, fmt.Errorf("%w: reviewer identity is required", ErrValidation)
	}
	if !s.caps.CanScore(ctx, reviewer) {
		metrics.RecordJudgmentRejected("permission")
		return model.Judgment{}, fmt.Errorf("%w: %s may not score", ErrPermission, reviewer)
	}
	if !phase.Valid() {
		metrics.RecordJudgmentRejected("phase")
		return model.Judgment{}, fmt.Errorf("%w: unknown phase %d", ErrValidation, phase)
	}
	if err := scoring.ValidateScores(s.rubric, scores); err != nil {
		metrics.RecordJudgmentRejected("scorecard")
		// An unknown criterion references a thing that does not exist;
		// everything else about a bad scorecard is malformed input.
		if errors.Is(err, scoring.ErrUnknownCriterion) {
			return model.Judgment{}, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return model.Judgment{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	unlock := s.subLocks.lock(submissionID)
	defer unlock()

	sub, err := s.submissions.Get(ctx, submissionID)
	if err != nil {
		return model.Judgment{}, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}
	if sub.Status != phase.Status() {
		metrics.RecordJudgmentRejected("state")
		return model.Judgment{}, fmt.Errorf("%w: submission is %s, phase %s is not open",
			ErrState, sub.Status, phase)
	}

	if err := s.supersede(ctx, repository.Filter{
		SubmissionID: submissionID,
		Kind:         model.KindScoring,
		Reviewer:     reviewer,
		Phase:        phase,
		ActiveOnly:   true,
	}); err != nil {
		return model.Judgment{}, err
	}

	rec := model.Judgment{
		SubmissionID: submissionID,
		Reviewer:     reviewer,
		Kind:         model.KindScoring,
		Phase:        phase,
		Scores:       scores,
		Note:         note,
	}
	id, err := s.journal.Append(ctx, rec)
	if err != nil {
		return model.Judgment{}, fmt.Errorf("appending scoring judgment: %w", err)
	}
	rec.ID = id
	rec.Active = true
	metrics.RecordJudgmentRecorded(string(model.KindScoring))

	if err := s.recomputeScores(ctx, submissionID, phase); err != nil {
		return model.Judgment{}, err
	}

	return rec, nil
}

// recomputeScores rebuilds the derived aggregates from the journal after
// a scoring judgment landed. Caller holds the submission lock.
func (s *Service) recomputeScores(ctx context.Context, submissionID string, phase model.Phase) error {
	start := time.Now()
	defer func() {
		metrics.RecordScoreRecomputeLatency(float64(time.Since(start).Milliseconds()))
	}()

	records, err := s.journal.Query(ctx, repository.Filter{
		SubmissionID: submissionID,
		Kind:         model.KindScoring,
		ActiveOnly:   true,
	})
	if err != nil {
		return fmt.Errorf("reading scoring records: %w", err)
	}

	overall := scoring.Weighted(records, s.rubric, scoring.Filter{})
	phased := scoring.Weighted(records, s.rubric, scoring.Filter{Phase: phase})

	if err := s.submissions.SetScores(ctx, submissionID,
		overall.Score, overall.OK, phase, phased.Score, phased.OK); err != nil {
		return fmt.Errorf("persisting scores: %w", err)
	}

	if overall.HasJudgments {
		if err := s.ranking.Update(ctx, submissionID, overall.Score); err != nil {
			return fmt.Errorf("updating ranking: %w", err)
		}
	} else {
		s.ranking.Remove(ctx, submissionID)
	}
	return nil
}

// supersede soft-invalidates every record the filter matches.
func (s *Service) supersede(ctx context.Context, f repository.Filter) error {
	prior, err := s.journal.Query(ctx, f)
	if err != nil {
		return fmt.Errorf("reading prior records: %w", err)
	}
	for i := range prior {
		if err := s.journal.Invalidate(ctx, prior[i].ID); err != nil {
			return fmt.Errorf("superseding record %d: %w", prior[i].ID, err)
		}
		metrics.RecordJudgmentSuperseded()
	}
	return nil
}

// ScreeningSummary aggregates the active screening records.
func (s *Service) ScreeningSummary(ctx context.Context, submissionID string) (screening.Summary, error) {
	if _, err := s.submissions.Get(ctx, submissionID); err != nil {
		return screening.Summary{}, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}

	records, err := s.journal.Query(ctx, repository.Filter{
		SubmissionID: submissionID,
		Kind:         model.KindScreening,
		ActiveOnly:   true,
	})
	if err != nil {
		return screening.Summary{}, fmt.Errorf("reading screening records: %w", err)
	}
	return screening.Summarize(records), nil
}

// WeightedScore computes the weighted score over the active scoring
// records, optionally narrowed to one phase or one reviewer.
func (s *Service) WeightedScore(ctx context.Context, submissionID string, f scoring.Filter) (scoring.Result, error) {
	if _, err := s.submissions.Get(ctx, submissionID); err != nil {
		return scoring.Result{}, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}

	records, err := s.journal.Query(ctx, repository.Filter{
		SubmissionID: submissionID,
		Kind:         model.KindScoring,
		ActiveOnly:   true,
	})
	if err != nil {
		return scoring.Result{}, fmt.Errorf("reading scoring records: %w", err)
	}
	return scoring.Weighted(records, s.rubric, f), nil
}

// History returns every journal record for the submission, superseded
// ones included, in insertion order.
func (s *Service) History(ctx context.Context, submissionID string) ([]model.Judgment, error) {
	if _, err := s.submissions.Get(ctx, submissionID); err != nil {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}
	records, err := s.journal.Query(ctx, repository.Filter{SubmissionID: submissionID})
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	return records, nil
}

// OverrideStatus force-sets a submission's status. Admin only; this is
// the operator path for phase advancement and corrections.
func (s *Service) OverrideStatus(ctx context.Context, reviewer, submissionID string, to model.Status) error {
	if reviewer == "" {
		return fmt.Errorf("%w: reviewer identity is required", ErrValidation)
	}
	if !s.caps.CanAssignScorers(ctx, reviewer) {
		return fmt.Errorf("%w: %s may not override status", ErrPermission, reviewer)
	}
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}

	unlock := s.subLocks.lock(submissionID)
	defer unlock()

	if err := s.submissions.ForceStatus(ctx, submissionID, to); err != nil {
		return fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}
	s.logger.Info(ctx, "status overridden",
		logger.String("submission_id", submissionID),
		logger.String("reviewer", reviewer),
		logger.String("status", string(to)),
	)
	return nil
}

// GetSubmission returns the submission by id.
func (s *Service) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	sub, err := s.submissions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, id)
	}
	return sub, nil
}

// GetSubmissionByCode resolves a submission by its human-facing code.
func (s *Service) GetSubmissionByCode(ctx context.Context, code string) (*model.Submission, error) {
	sub, err := s.submissions.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: submission code %s", ErrNotFound, code)
	}
	return sub, nil
}

// ListSubmissions returns submissions, optionally filtered by status.
func (s *Service) ListSubmissions(ctx context.Context, status model.Status) ([]*model.Submission, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.submissions.List(ctx, status)
}

// TopN returns the top N ranked submissions by overall score.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	entries, err := s.ranking.TopN(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%w: limit %d", ErrValidation, n)
	}
	return entries, nil
}

// Rank returns the rank entry for one submission.
func (s *Service) Rank(ctx context.Context, submissionID string) (repository.Entry, error) {
	entry, err := s.ranking.Rank(ctx, submissionID)
	if err != nil {
		return repository.Entry{}, fmt.Errorf("%w: submission %s is not ranked", ErrNotFound, submissionID)
	}
	return entry, nil
}

// Rubric returns the active rubric configuration.
func (s *Service) Rubric() *rubric.Rubric {
	return s.rubric
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"quorum":      s.quorum,
	}

	if s.started {
		queueLen := s.checkQueue.Len(ctx)
		total, active := s.journal.Counts(ctx)

		stats["queueLength"] = queueLen
		stats["totalSubmissions"] = s.submissions.Count(ctx)
		stats["journalRecords"] = total
		stats["activeRecords"] = active
		stats["rankedSubmissions"] = s.ranking.Count(ctx)

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalSubmissions(s.submissions.Count(ctx))
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

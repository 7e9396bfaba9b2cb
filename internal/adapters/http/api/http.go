// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/wikimedia-contest/jury/internal/adapters/repository"
	service "github.com/wikimedia-contest/jury/internal/app"
	"github.com/wikimedia-contest/jury/internal/domain/model"
	"github.com/wikimedia-contest/jury/internal/domain/rubric"
	"github.com/wikimedia-contest/jury/internal/domain/scoring"
	"github.com/wikimedia-contest/jury/internal/domain/screening"
)

// reviewerHeader carries the authenticated reviewer identity, injected
// by the SSO proxy in front of this service.
const reviewerHeader = "X-Reviewer-ID"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateSubmission(ctx context.Context, in service.Intake) (*model.Submission, error)
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	GetSubmissionByCode(ctx context.Context, code string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, status model.Status) ([]*model.Submission, error)

	RecordScreeningJudgment(ctx context.Context, reviewer, submissionID string, decision model.Decision, flags []string, note string) (model.Judgment, error)
	RecordScoringJudgment(ctx context.Context, reviewer, submissionID string, phase model.Phase, scores map[string]int, note string) (model.Judgment, error)
	ScreeningSummary(ctx context.Context, submissionID string) (screening.Summary, error)
	WeightedScore(ctx context.Context, submissionID string, f scoring.Filter) (scoring.Result, error)
	History(ctx context.Context, submissionID string) ([]model.Judgment, error)
	OverrideStatus(ctx context.Context, reviewer, submissionID string, to model.Status) error

	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, submissionID string) (Entry, error)
	Rubric() *rubric.Rubric
}

// Entry mirrors the read shape returned by ranking queries.
type Entry = repository.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	submissionsHandler *SubmissionsHandler
	rankingHandler     *RankingHandler
	rubricHandler      *RubricHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxRankingLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		submissionsHandler: NewSubmissionsHandler(deps),
		rankingHandler:     NewRankingHandler(deps, maxRankingLimit),
		rubricHandler:      NewRubricHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/submissions", MetricsMiddleware(s.submissionsHandler.HandleSubmissions, "submissions"))
	mux.HandleFunc("/submissions/", MetricsMiddleware(s.submissionsHandler.HandleSubmission, "submission"))
	mux.HandleFunc("/ranking", MetricsMiddleware(s.rankingHandler.HandleGetRanking, "ranking"))
	mux.HandleFunc("/ranking/", MetricsMiddleware(s.rankingHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/rubric", MetricsMiddleware(s.rubricHandler.HandleGetRubric, "rubric"))
}

// reviewerFrom extracts the reviewer identity from the request.
func reviewerFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(reviewerHeader))
}

// audioPayload mirrors the OpenAPI schema for the audio block.
type audioPayload struct {
	FileRef    string `json:"file_ref"`
	Format     string `json:"format"`
	DurationMS int64  `json:"duration_ms"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	SizeBytes  int64  `json:"size_bytes"`
}

// submissionRequest mirrors the OpenAPI schema for POST /submissions.
type submissionRequest struct {
	SubmitterName    string       `json:"submitter_name"`
	SubmitterEmail   string       `json:"submitter_email"`
	SubmitterCountry string       `json:"submitter_country"`
	CreationProcess  string       `json:"creation_process"`
	Audio            audioPayload `json:"audio"`
	Token            string       `json:"token"`
}

func (s submissionRequest) validate() error {
	switch {
	case strings.TrimSpace(s.SubmitterEmail) == "":
		return errors.New("missing submitter_email")
	case strings.TrimSpace(s.Audio.FileRef) == "":
		return errors.New("missing audio.file_ref")
	}
	return nil
}

// submissionResponse is the read shape for a submission.
type submissionResponse struct {
	ID               string              `json:"id"`
	Code             string              `json:"code"`
	SubmitterName    string              `json:"submitter_name,omitempty"`
	SubmitterCountry string              `json:"submitter_country,omitempty"`
	Audio            audioPayload        `json:"audio"`
	Status           string              `json:"status"`
	CreatedAt        time.Time           `json:"created_at"`
	ScoreOverall     *float64            `json:"score_overall,omitempty"`
	ScoreByPhase     map[string]float64  `json:"score_by_phase,omitempty"`
}

func toSubmissionResponse(sub *model.Submission) submissionResponse {
	resp := submissionResponse{
		ID:               sub.ID,
		Code:             sub.Code,
		SubmitterName:    sub.SubmitterName,
		SubmitterCountry: sub.SubmitterCountry,
		Audio: audioPayload{
			FileRef:    sub.Audio.FileRef,
			Format:     sub.Audio.Format,
			DurationMS: sub.Audio.DurationMS,
			SampleRate: sub.Audio.SampleRate,
			Channels:   sub.Audio.Channels,
			SizeBytes:  sub.Audio.SizeBytes,
		},
		Status:    string(sub.Status),
		CreatedAt: sub.CreatedAt,
	}
	if sub.HasOverall {
		score := sub.ScoreOverall
		resp.ScoreOverall = &score
	}
	if len(sub.ScoreByPhase) > 0 {
		resp.ScoreByPhase = make(map[string]float64, len(sub.ScoreByPhase))
		for phase, score := range sub.ScoreByPhase {
			resp.ScoreByPhase[phase.String()] = score
		}
	}
	return resp
}

// judgmentResponse is the read shape for a journal record.
type judgmentResponse struct {
	ID           int64          `json:"id"`
	SubmissionID string         `json:"submission_id"`
	Reviewer     string         `json:"reviewer,omitempty"`
	System       bool           `json:"system"`
	Kind         string         `json:"kind"`
	Phase        int            `json:"phase,omitempty"`
	Active       bool           `json:"active"`
	CreatedAt    time.Time      `json:"created_at"`
	Decision     string         `json:"decision,omitempty"`
	Flags        []string       `json:"flags,omitempty"`
	Note         string         `json:"note,omitempty"`
	Scores       map[string]int `json:"scores,omitempty"`
}

func toJudgmentResponse(j *model.Judgment) judgmentResponse {
	return judgmentResponse{
		ID:           j.ID,
		SubmissionID: j.SubmissionID,
		Reviewer:     j.Reviewer,
		System:       j.System(),
		Kind:         string(j.Kind),
		Phase:        int(j.Phase),
		Active:       j.Active,
		CreatedAt:    j.CreatedAt,
		Decision:     string(j.Decision),
		Flags:        j.Flags,
		Note:         j.Note,
		Scores:       j.Scores,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates the service error taxonomy onto status
// codes: validation 422, permission 403, not found 404, state 409,
// backpressure 429, everything else 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err)
	case errors.Is(err, service.ErrPermission):
		writeError(w, http.StatusForbidden, "permission_denied", err)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrState):
		writeError(w, http.StatusConflict, "invalid_state", err)
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

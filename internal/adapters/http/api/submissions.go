// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	service "github.com/wikimedia-contest/jury/internal/app"
	"github.com/wikimedia-contest/jury/internal/domain/model"
	"github.com/wikimedia-contest/jury/internal/domain/scoring"
)

// SubmissionsHandler handles the submission collection and its
// per-submission subresources.
type SubmissionsHandler struct {
	deps Dependencies
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps Dependencies) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps}
}

// HandleSubmissions handles POST /submissions and GET /submissions.
func (h *SubmissionsHandler) HandleSubmissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreate(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SubmissionsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_submission"
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sub, err := h.deps.CreateSubmission(r.Context(), service.Intake{
		SubmitterName:    req.SubmitterName,
		SubmitterEmail:   req.SubmitterEmail,
		SubmitterCountry: req.SubmitterCountry,
		CreationProcess:  req.CreationProcess,
		Audio: model.AudioMeta{
			FileRef:    req.Audio.FileRef,
			Format:     req.Audio.Format,
			DurationMS: req.Audio.DurationMS,
			SampleRate: req.Audio.SampleRate,
			Channels:   req.Audio.Channels,
			SizeBytes:  req.Audio.SizeBytes,
		},
		Token: req.Token,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubmissionResponse(sub))
}

func (h *SubmissionsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	status := model.Status(r.URL.Query().Get("status"))
	subs, err := h.deps.ListSubmissions(r.Context(), status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]submissionResponse, len(subs))
	for i, sub := range subs {
		out[i] = toSubmissionResponse(sub)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSubmission routes GET /submissions/{id} and the judgment
// subresources underneath it. Submission codes (SL-...) resolve like ids
// on the read path.
func (h *SubmissionsHandler) HandleSubmission(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/submissions/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	switch sub {
	case "":
		h.handleGet(w, r, id)
	case "screening":
		h.handleScreening(w, r, id)
	case "scores":
		h.handleScores(w, r, id)
	case "score":
		h.handleScore(w, r, id)
	case "history":
		h.handleHistory(w, r, id)
	case "status":
		h.handleStatus(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *SubmissionsHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	var (
		sub *model.Submission
		err error
	)
	if strings.HasPrefix(id, "SL-") {
		sub, err = h.deps.GetSubmissionByCode(r.Context(), id)
	} else {
		sub, err = h.deps.GetSubmission(r.Context(), id)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponse(sub))
}

// screeningRequest mirrors the OpenAPI schema for screening judgments.
type screeningRequest struct {
	Decision string   `json:"decision"`
	Flags    []string `json:"flags"`
	Note     string   `json:"note"`
}

// handleScreening covers POST (record judgment) and GET (summary) on
// /submissions/{id}/screening.
func (h *SubmissionsHandler) handleScreening(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.screening"
	switch r.Method {
	case http.MethodPost:
		var req screeningRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		rec, err := h.deps.RecordScreeningJudgment(r.Context(), reviewerFrom(r), id,
			model.Decision(req.Decision), req.Flags, req.Note)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toJudgmentResponse(&rec))

	case http.MethodGet:
		summary, err := h.deps.ScreeningSummary(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"decision_counts": map[string]int{
				string(model.DecisionEligible):   summary.DecisionCounts[model.DecisionEligible],
				string(model.DecisionIneligible): summary.DecisionCounts[model.DecisionIneligible],
			},
			"flags": summary.Flags,
		})

	default:
		http.NotFound(w, r)
	}
}

// scoringRequest mirrors the OpenAPI schema for scoring judgments.
type scoringRequest struct {
	Phase  int            `json:"phase"`
	Scores map[string]int `json:"scores"`
	Note   string         `json:"note"`
}

// handleScores covers POST /submissions/{id}/scores.
func (h *SubmissionsHandler) handleScores(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.scoring"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req scoringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.RecordScoringJudgment(r.Context(), reviewerFrom(r), id,
		model.Phase(req.Phase), req.Scores, req.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toJudgmentResponse(&rec))
}

// handleScore covers GET /submissions/{id}/score with optional phase and
// reviewer query narrowing.
func (h *SubmissionsHandler) handleScore(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	f := scoring.Filter{Reviewer: r.URL.Query().Get("reviewer")}
	if p := r.URL.Query().Get("phase"); p != "" {
		phase, err := parsePhaseParam(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		f.Phase = phase
	}

	result, err := h.deps.WeightedScore(r.Context(), id, f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"score":         result.Score,
		"ok":            result.OK,
		"judgments":     result.Judgments,
		"has_judgments": result.HasJudgments,
	})
}

// handleHistory covers GET /submissions/{id}/history: the full journal,
// superseded records included.
func (h *SubmissionsHandler) handleHistory(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	records, err := h.deps.History(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]judgmentResponse, len(records))
	for i := range records {
		out[i] = toJudgmentResponse(&records[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func parsePhaseParam(s string) (model.Phase, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: phase must be numeric", ErrBadRequest)
	}
	phase, err := model.ParsePhase(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return phase, nil
}

// statusRequest mirrors the OpenAPI schema for the status override.
type statusRequest struct {
	Status string `json:"status"`
}

// handleStatus covers PUT /submissions/{id}/status, the admin override.
func (h *SubmissionsHandler) handleStatus(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.status_override"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.OverrideStatus(r.Context(), reviewerFrom(r), id, model.Status(req.Status)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

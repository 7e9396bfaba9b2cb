// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/wikimedia-contest/jury/internal/domain/rubric"
)

// RubricProvider exposes the active rubric configuration.
type RubricProvider interface {
	Rubric() *rubric.Rubric
}

// RubricHandler serves the rubric so judging tools can render the
// scorecard without hardcoding it.
type RubricHandler struct {
	deps RubricProvider
}

// NewRubricHandler creates a new rubric handler.
func NewRubricHandler(deps RubricProvider) *RubricHandler {
	return &RubricHandler{deps: deps}
}

type rubricCriterion struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

type rubricCategory struct {
	ID       string            `json:"id"`
	Label    string            `json:"label"`
	Weight   float64           `json:"weight"`
	Criteria []rubricCriterion `json:"criteria"`
}

type rubricResponse struct {
	Name       string           `json:"name"`
	MinScore   int              `json:"min_score"`
	MaxScore   int              `json:"max_score"`
	Categories []rubricCategory `json:"categories"`
}

// HandleGetRubric handles GET /rubric requests.
func (h *RubricHandler) HandleGetRubric(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	ru := h.deps.Rubric()
	resp := rubricResponse{
		Name:     ru.Name,
		MinScore: rubric.MinScore,
		MaxScore: rubric.MaxScore,
	}
	for _, cat := range ru.Categories {
		out := rubricCategory{
			ID:     cat.ID,
			Label:  cat.Label,
			Weight: cat.Weight,
		}
		for _, cr := range cat.Criteria {
			out.Criteria = append(out.Criteria, rubricCriterion{ID: cr.ID, Prompt: cr.Prompt})
		}
		resp.Categories = append(resp.Categories, out)
	}
	writeJSON(w, http.StatusOK, resp)
}

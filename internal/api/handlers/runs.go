package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/api/dto"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/storage"
)

// RunsHandler handles reconcile run requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns recent runs, newest first.
func (h *RunsHandler) List(c *gin.Context) {
	params := dto.DefaultRunListParams()
	if err := c.ShouldBindQuery(&params); err != nil {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("invalid query: "+err.Error()))
		return
	}

	runs, err := h.repo.ListRuns(c.Request.Context(), params.Limit)
	if err != nil {
		_ = c.Error(err)
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/runs/:id - returns a single run.
func (h *RunsHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.repo.GetRun(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(c, http.StatusNotFound, dto.NotFoundError("run"))
		return
	}
	if err != nil {
		_ = c.Error(err)
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.JSON(http.StatusOK, toRunResponse(run))
}

// toRunResponse converts a storage Run to an API response.
func toRunResponse(run *storage.Run) dto.RunResponse {
	resp := dto.RunResponse{
		ID:            run.ID,
		Mode:          run.Mode,
		Status:        run.Status,
		StartedAt:     run.StartedAt.Format(time.RFC3339),
		StartDate:     run.StartDate,
		EndDate:       run.EndDate,
		LookbackDays:  run.LookbackDays,
		LookaheadDays: run.LookaheadDays,
		ErrorMessage:  run.ErrorMessage,
		Stats: dto.RunStatsResponse{
			RecordsTotal:  run.Stats.RecordsTotal,
			Targets:       run.Stats.Targets,
			Prompts:       run.Stats.Prompts,
			Duplicates:    run.Stats.Duplicates,
			NotDuplicates: run.Stats.NotDuplicates,
			Matches:       run.Stats.Matches,
			Investigate:   run.Stats.Investigate,
			Kept:          run.Stats.Kept,
			Unmapped:      run.Stats.Unmapped,
			Pending:       run.Stats.Pending,
			SplitParents:  run.Stats.SplitParents,
			Ignored:       run.Stats.Ignored,
		},
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

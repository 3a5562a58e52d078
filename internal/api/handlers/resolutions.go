package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/api/dto"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/storage"
)

// ResolutionsHandler serves the decision log for manual follow-up in the
// originating system.
type ResolutionsHandler struct {
	*Base
}

// NewResolutionsHandler creates a new resolutions handler.
func NewResolutionsHandler(repo storage.Repository) *ResolutionsHandler {
	return &ResolutionsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/resolutions?state=&source=&run_id=&limit=&offset=
func (h *ResolutionsHandler) List(c *gin.Context) {
	params := dto.DefaultResolutionListParams()
	if err := c.ShouldBindQuery(&params); err != nil {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("invalid query: "+err.Error()))
		return
	}
	h.list(c, params)
}

// ListForRun handles GET /api/runs/:id/resolutions
func (h *ResolutionsHandler) ListForRun(c *gin.Context) {
	params := dto.DefaultResolutionListParams()
	if err := c.ShouldBindQuery(&params); err != nil {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("invalid query: "+err.Error()))
		return
	}
	params.RunID = c.Param("id")
	h.list(c, params)
}

func (h *ResolutionsHandler) list(c *gin.Context, params dto.ResolutionListParams) {
	if params.State != "" {
		state, err := transaction.ParseState(params.State)
		if err != nil {
			h.WriteError(c, http.StatusBadRequest, dto.InvalidParamError("state", err.Error()))
			return
		}
		params.State = string(state)
	}
	if params.Source != "" && params.Source != string(transaction.SourcePrimary) && params.Source != string(transaction.SourceReference) {
		h.WriteError(c, http.StatusBadRequest, dto.InvalidParamError("source", "source must be primary or reference"))
		return
	}

	result, err := h.repo.ListResolutions(c.Request.Context(), storage.ResolutionFilter{
		State:  params.State,
		Source: params.Source,
		RunID:  params.RunID,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		_ = c.Error(err)
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.ResolutionListResponse{
		Resolutions: make([]dto.ResolutionResponse, 0, len(result.Resolutions)),
		TotalCount:  result.TotalCount,
		Limit:       result.Limit,
		Offset:      result.Offset,
	}
	for _, r := range result.Resolutions {
		response.Resolutions = append(response.Resolutions, toResolutionResponse(r))
	}

	c.JSON(http.StatusOK, response)
}

func toResolutionResponse(r *storage.Resolution) dto.ResolutionResponse {
	return dto.ResolutionResponse{
		ID:        r.ID,
		RunID:     r.RunID,
		Source:    r.Source,
		RecordID:  r.RecordID,
		Account:   r.Account,
		Amount:    r.Amount,
		Date:      r.Date,
		Payee:     r.Payee,
		Notes:     r.Notes,
		State:     r.State,
		RelatedID: r.RelatedID,
		Edited:    r.Edited,
		DecidedAt: r.DecidedAt.Format(time.RFC3339),
	}
}

package http

import (
	"strconv"

	qaRequest "ReviewQA/internal/modules/qa/application/dto/request"
	"ReviewQA/internal/modules/qa/application/service"
	"ReviewQA/pkg/back"
	"ReviewQA/pkg/xerr"
	"ReviewQA/pkg/zlog"

	"github.com/gin-gonic/gin"
)

type QAHandler struct {
	querySvc service.QueryService
}

func NewQAHandler(querySvc service.QueryService) *QAHandler {
	return &QAHandler{querySvc: querySvc}
}

// SubmitQuery enqueues a query for asynchronous processing.
//
// Route: POST /qa/query/async
func (h *QAHandler) SubmitQuery(c *gin.Context) {
	var req qaRequest.SubmitQueryRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.querySvc.SubmitQuery(c.Request.Context(), req)
	back.Result(c, data, err)
}

// GetQuery returns the status of a query and, once processed, its answer and
// sources.
//
// Route: GET /qa/query/:id
func (h *QAHandler) GetQuery(c *gin.Context) {
	data, err := h.querySvc.GetQuery(c.Request.Context(), c.Param("id"))
	back.Result(c, data, err)
}

// ListEscalations returns queued escalations ordered by priority.
//
// Route: GET /qa/escalations
func (h *QAHandler) ListEscalations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	data, err := h.querySvc.ListEscalations(c.Request.Context(), limit)
	back.Result(c, data, err)
}

// UpdateEscalationStatus assigns, progresses, resolves or cancels an
// escalation.
//
// Route: POST /qa/escalations/:id/status
func (h *QAHandler) UpdateEscalationStatus(c *gin.Context) {
	var req qaRequest.UpdateEscalationStatusRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.querySvc.UpdateEscalationStatus(c.Request.Context(), c.Param("id"), req)
	back.Result(c, data, err)
}

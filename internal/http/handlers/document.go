package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/finsights-backend/internal/domain/documents"
	"github.com/yungbote/finsights-backend/internal/http/response"
	"github.com/yungbote/finsights-backend/internal/platform/apierr"
	"github.com/yungbote/finsights-backend/internal/services"
)

type DocumentHandler struct {
	docs services.DocumentService
}

func NewDocumentHandler(docs services.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// POST /api/documents[?if_absent=true]
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var in types.NewDocument
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_request", err))
		return
	}

	ifAbsent, _ := strconv.ParseBool(c.Query("if_absent"))
	if ifAbsent {
		doc, inserted, err := h.docs.CreateIfAbsent(c.Request.Context(), in)
		if err != nil {
			response.RespondAPIError(c, err)
			return
		}
		status := http.StatusOK
		if inserted {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"document": doc, "inserted": inserted})
		return
	}

	doc, err := h.docs.Create(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"document": doc})
}

// GET /api/documents/:uuid
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, err := h.docs.Get(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"document": doc})
}

// GET /api/documents/by-hash/:sha256
func (h *DocumentHandler) FindByHash(c *gin.Context) {
	doc, err := h.docs.FindByHash(c.Request.Context(), c.Param("sha256"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"document": doc})
}

type transitionRequest struct {
	Status string                 `json:"status" binding:"required"`
	Fields types.TransitionFields `json:"fields"`
}

// POST /api/documents/:uuid/transition
func (h *DocumentHandler) Transition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	to, err := types.ParseProcessingStatus(req.Status)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	res, err := h.docs.Transition(c.Request.Context(), c.Param("uuid"), to, req.Fields)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, transitionBody(res))
}

type insightsRequest struct {
	InsightsFileName  string `json:"insights_file_name"`
	InsightsCreatedAt string `json:"insights_created_at"`
}

// POST /api/documents/:uuid/insights
func (h *DocumentHandler) RecordInsights(c *gin.Context) {
	var req insightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	res, err := h.docs.RecordInsights(c.Request.Context(), c.Param("uuid"), req.InsightsFileName, req.InsightsCreatedAt)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, transitionBody(res))
}

func transitionBody(res *types.TransitionResult) gin.H {
	return gin.H{
		"document":    res.Document,
		"from_status": res.From,
		"to_status":   res.To,
		"kind":        res.Kind,
	}
}

// GET /api/documents?status=...&limit=...&cursor=...
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	status, err := types.ParseProcessingStatus(c.Query("status"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_limit", err))
		return
	}
	after, err := types.DecodeCursor(strings.TrimSpace(c.Query("cursor")))
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_cursor", err))
		return
	}

	docs, next, err := h.docs.ListPage(c.Request.Context(), status, after, limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if docs == nil {
		docs = []*types.Document{}
	}
	response.RespondOK(c, gin.H{"documents": docs, "next_cursor": next.Encode()})
}

// GET /api/documents/:uuid/history
func (h *DocumentHandler) History(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_limit", err))
		return
	}
	rows, err := h.docs.History(c.Request.Context(), c.Param("uuid"), limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if rows == nil {
		rows = []*types.DocumentTransition{}
	}
	response.RespondOK(c, gin.H{"transitions": rows})
}

// GET /api/documents/stats
func (h *DocumentHandler) Stats(c *gin.Context) {
	counts, err := h.docs.StatusCounts(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"counts": counts})
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

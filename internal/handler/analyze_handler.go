package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/malindard/llm-analyzer/internal/model"
	"github.com/malindard/llm-analyzer/pkg/content"
	"github.com/malindard/llm-analyzer/pkg/llm"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PhishingStore interface {
	GetByID(id int64) (*model.PhishingRecord, error)
}

// AnalysisQueue receives completed analyses for downstream consumers. A nil
// queue disables auditing.
type AnalysisQueue interface {
	Push(data string) error
}

type Options struct {
	Model                string
	IncludeEmailFeatures bool
}

type AnalyzeHandler struct {
	store PhishingStore
	llm   llm.CompletionClient
	queue AnalysisQueue
	opts  Options
}

func NewAnalyzeHandler(store PhishingStore, client llm.CompletionClient, queue AnalysisQueue, opts Options) *AnalyzeHandler {
	return &AnalyzeHandler{store: store, llm: client, queue: queue, opts: opts}
}

func errorResponse(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"status": "error", "message": msg})
}

// AnalyzeByID is the legacy variant: the content to analyze is fetched from
// the phishings table instead of the request body.
func (h *AnalyzeHandler) AnalyzeByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		errorResponse(c, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	requestID := strconv.FormatInt(id, 10)
	slog.Info("received analysis request", "id", id)

	record, err := h.store.GetByID(id)
	if err != nil {
		slog.Error("error fetching phishing record", "id", id, "error", err)
		errorResponse(c, http.StatusInternalServerError, "Database error")
		return
	}

	if record == nil || record.ExtractedContent == "" {
		slog.Error("extracted content not found", "id", id)
		errorResponse(c, http.StatusNotFound, "extracted_content kosong atau tidak ditemukan")
		return
	}

	h.runAnalysis(c, record.ExtractedContent, requestID, model.SourceDatabase)
}

type analyzeRequest struct {
	Context json.RawMessage `json:"context"`
}

// Analyze is the current variant: the content to analyze arrives in the
// request body under "context".
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Context) == 0 || string(req.Context) == "null" {
		errorResponse(c, http.StatusBadRequest, "context is required")
		return
	}

	requestID := uuid.NewString()
	slog.Info("received analysis request", "request_id", requestID)

	var raw any
	if err := json.Unmarshal(req.Context, &raw); err != nil {
		errorResponse(c, http.StatusBadRequest, "context is not valid JSON")
		return
	}

	h.runAnalysis(c, raw, requestID, model.SourceAPI)
}

// runAnalysis is the shared normalize → render → complete tail of both
// variants. Normalization failures map to 400 on both routes: the content is
// caller-supplied data wherever it was stored in between.
func (h *AnalyzeHandler) runAnalysis(c *gin.Context, raw any, requestID, source string) {
	record, err := content.Normalize(raw)
	if err != nil {
		slog.Error("content normalization failed", "request_id", requestID, "error", err)
		errorResponse(c, http.StatusBadRequest, "invalid extracted content: "+err.Error())
		return
	}

	prompt := llm.BuildPrompt(record, llm.PromptOptions{
		IncludeEmailFeatures: h.opts.IncludeEmailFeatures,
	})

	insight, err := h.llm.Complete(c.Request.Context(), prompt)
	if err != nil {
		h.respondGatewayError(c, requestID, err)
		return
	}

	h.pushAudit(requestID, source, llm.InputType(record), insight)

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"llm_insight": insight,
	})
}

// respondGatewayError maps the gateway taxonomy to a caller-facing status.
// An upstream non-200 is forwarded verbatim; everything else is a 500.
func (h *AnalyzeHandler) respondGatewayError(c *gin.Context, requestID string, err error) {
	var gwErr *llm.GatewayError
	if !errors.As(err, &gwErr) {
		slog.Error("llm completion failed", "request_id", requestID, "error", err)
		errorResponse(c, http.StatusInternalServerError, "LLM Error: "+err.Error())
		return
	}

	status := http.StatusInternalServerError
	if gwErr.Kind == llm.GatewayUpstreamStatus {
		status = gwErr.Status
	}

	slog.Error("llm gateway error",
		"request_id", requestID,
		"kind", string(gwErr.Kind),
		"upstream_status", gwErr.Status,
		"error", gwErr.Detail)
	errorResponse(c, status, "LLM Error: "+gwErr.Detail)
}

func (h *AnalyzeHandler) pushAudit(requestID, source, inputType, insight string) {
	if h.queue == nil {
		return
	}

	payload, err := json.Marshal(model.AnalysisRecord{
		RequestID: requestID,
		Source:    source,
		InputType: inputType,
		Model:     h.opts.Model,
		Insight:   insight,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Error("error encoding analysis audit record", "request_id", requestID, "error", err)
		return
	}

	if err := h.queue.Push(string(payload)); err != nil {
		slog.Error("error pushing analysis to audit queue", "request_id", requestID, "error", err)
	}
}

func (h *AnalyzeHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "LLM Analyzer aktif",
		"model":   h.opts.Model,
	})
}

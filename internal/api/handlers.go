package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"volrv/internal/backtest"
	"volrv/internal/cache"
	"volrv/internal/logger"
	"volrv/internal/monitoring"
	"volrv/internal/store"
)

const summaryCacheTTL = time.Hour

// Response is the standard API envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RunHandler serves run artifacts from the repository.
type RunHandler struct {
	repo      store.Repository
	summaries cache.SummaryCache
	runner    *backtest.Runner
	files     *store.FileStore
	metrics   *monitoring.Metrics
	log       logger.Logger
}

// NewRunHandler creates the run artifact handler.
func NewRunHandler(repo store.Repository, summaries cache.SummaryCache,
	runner *backtest.Runner, files *store.FileStore, metrics *monitoring.Metrics, log logger.Logger) *RunHandler {
	return &RunHandler{
		repo:      repo,
		summaries: summaries,
		runner:    runner,
		files:     files,
		metrics:   metrics,
		log:       log.WithField("component", "run_handler"),
	}
}

// Health reports liveness.
func (h *RunHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

// ListRuns returns recent run summaries, newest first.
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid limit"})
			return
		}
		limit = parsed
	}
	summaries, err := h.repo.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summaries})
}

// TriggerRun executes the configured backtest pipeline and persists results.
func (h *RunHandler) TriggerRun(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "runner not configured"})
		return
	}

	started := time.Now()
	results, err := h.runner.Run(c.Request.Context())
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordRun("all", "failed", time.Since(started))
		}
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: err.Error()})
		return
	}

	summaries := make([]backtest.Summary, 0, len(results))
	for _, result := range results {
		if err := h.persist(c, result); err != nil {
			h.serverError(c, err)
			return
		}
		if h.metrics != nil {
			h.metrics.RecordRun(result.Underlying, "completed", time.Since(started))
			h.metrics.RecordResult(result)
		}
		summaries = append(summaries, result.Summary)
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: summaries})
}

func (h *RunHandler) persist(c *gin.Context, result *backtest.Result) error {
	if err := h.repo.SaveRun(c.Request.Context(), result); err != nil {
		return err
	}
	if h.files != nil {
		if _, err := h.files.Export(result); err != nil {
			return err
		}
	}
	if h.summaries != nil {
		if err := h.summaries.Set(c.Request.Context(), &result.Summary, summaryCacheTTL); err != nil {
			h.log.Warn("failed to cache run summary", "run_id", result.RunID, "error", err)
		}
	}
	return nil
}

// GetSummary returns one run's summary, cache first.
func (h *RunHandler) GetSummary(c *gin.Context) {
	runID := c.Param("id")

	if h.summaries != nil {
		if summary, hit, err := h.summaries.Get(c.Request.Context(), runID); err == nil && hit {
			c.JSON(http.StatusOK, Response{Success: true, Data: summary})
			return
		}
	}

	summary, err := h.repo.GetSummary(c.Request.Context(), runID)
	if err != nil {
		h.repoError(c, err)
		return
	}
	if h.summaries != nil {
		if err := h.summaries.Set(c.Request.Context(), summary, summaryCacheTTL); err != nil {
			h.log.Warn("failed to cache run summary", "run_id", runID, "error", err)
		}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// DeleteRun removes a run and invalidates its cached summary.
func (h *RunHandler) DeleteRun(c *gin.Context) {
	runID := c.Param("id")
	if err := h.repo.DeleteRun(c.Request.Context(), runID); err != nil {
		h.repoError(c, err)
		return
	}
	if h.summaries != nil {
		if err := h.summaries.Delete(c.Request.Context(), runID); err != nil {
			h.log.Warn("failed to invalidate cached summary", "run_id", runID, "error", err)
		}
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

func (h *RunHandler) GetPositions(c *gin.Context) {
	positions, err := h.repo.GetPositions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.repoError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: positions})
}

func (h *RunHandler) GetTrades(c *gin.Context) {
	trades, err := h.repo.GetTrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.repoError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: trades})
}

func (h *RunHandler) GetPnL(c *gin.Context) {
	records, err := h.repo.GetPnL(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.repoError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

func (h *RunHandler) GetAttribution(c *gin.Context) {
	records, err := h.repo.GetAttribution(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.repoError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

func (h *RunHandler) GetRollEvents(c *gin.Context) {
	events, err := h.repo.GetRollEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.repoError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: events})
}

func (h *RunHandler) repoError(c *gin.Context, err error) {
	if err == store.ErrRunNotFound {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "run not found"})
		return
	}
	h.serverError(c, err)
}

func (h *RunHandler) serverError(c *gin.Context, err error) {
	h.log.Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
}

package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stevenovak55/bmnboston-sub004/config"
	"github.com/stevenovak55/bmnboston-sub004/internal/cache"
	"github.com/stevenovak55/bmnboston-sub004/internal/history"
	"github.com/stevenovak55/bmnboston-sub004/internal/models"
	"github.com/stevenovak55/bmnboston-sub004/internal/queue"
	"github.com/stevenovak55/bmnboston-sub004/internal/session"
	"github.com/stevenovak55/bmnboston-sub004/internal/valuation"
)

// ownerHeader identifies the requesting agent. Sessions and history are
// scoped to it; there is no further auth layer here.
const ownerHeader = "X-Owner-ID"

const defaultOwner = "default"

type Handler struct {
	cfg         *config.Config
	engine      *valuation.Engine
	market      valuation.ContextCalculator
	sessions    *session.Store
	history     *history.Tracker
	queue       *queue.ListingQueue
	resultCache *cache.Cache
	logger      *logrus.Logger
}

// ValuationRequest is the POST body for a valuation run. Filters are raw
// string params; normalization owns their interpretation.
type ValuationRequest struct {
	Subject models.SubjectProperty `json:"subject" binding:"required"`
	Filters map[string]string      `json:"filters"`
	ARV     *models.ARVOverrides   `json:"arv"`
	Note    string                 `json:"note"`
}

// SessionRequest names a valuation run to snapshot as a session.
type SessionRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Valuation   ValuationRequest `json:"valuation" binding:"required"`
}

// ImportRequest carries a batch of listings for the inventory pipeline.
type ImportRequest struct {
	Listings []*models.Property `json:"listings" binding:"required"`
}

func NewHandler(
	cfg *config.Config,
	engine *valuation.Engine,
	marketCalc valuation.ContextCalculator,
	sessions *session.Store,
	tracker *history.Tracker,
	listingQueue *queue.ListingQueue,
	resultCache *cache.Cache,
	logger *logrus.Logger,
) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Handler{
		cfg:         cfg,
		engine:      engine,
		market:      marketCalc,
		sessions:    sessions,
		history:     tracker,
		queue:       listingQueue,
		resultCache: resultCache,
		logger:      logger,
	}
}

func ownerID(c *gin.Context) string {
	if owner := c.GetHeader(ownerHeader); owner != "" {
		return owner
	}
	return defaultOwner
}

func (h *Handler) runValuation(c *gin.Context, req ValuationRequest) (*models.ValuationResponse, bool) {
	result, err := h.engine.Run(c.Request.Context(), valuation.Request{
		Subject: req.Subject,
		Raw:     models.RawFilterParams(req.Filters),
		OwnerID: ownerID(c),
		ARV:     req.ARV,
		Note:    req.Note,
	})
	if err != nil {
		switch {
		case valuation.IsInvalidInput(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, valuation.ErrSelectorTimeout):
			h.logger.WithError(err).Error("Comparable selection timed out")
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Comparable selection timed out"})
		default:
			h.logger.WithError(err).Error("Valuation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute valuation"})
		}
		return nil, false
	}
	return result, true
}

// RunValuation executes the full comparable matching and valuation pipeline.
func (h *Handler) RunValuation(c *gin.Context) {
	var req ValuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, ok := h.runValuation(c, req)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetMarketContext returns area-level statistics for a city and state.
func (h *Handler) GetMarketContext(c *gin.Context) {
	city := c.Query("city")
	state := c.Query("state")
	if city == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city and state are required"})
		return
	}
	propertyType := c.Query("property_type")

	lookback := h.cfg.Filters.LookbackMonths
	if raw := c.Query("lookback_months"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			lookback = parsed
		}
	}

	context, err := h.market.Compute(c.Request.Context(), city, state, propertyType, lookback)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute market context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute market context"})
		return
	}
	c.JSON(http.StatusOK, context)
}

// CreateSession runs a valuation and snapshots it under a name.
func (h *Handler) CreateSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, ok := h.runValuation(c, req.Valuation)
	if !ok {
		return
	}

	sess, err := h.sessions.Create(c.Request.Context(), ownerID(c), req.Name, req.Description, result)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context(), ownerID(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list sessions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.sessions.Get(c.Request.Context(), ownerID(c), id)
	if err != nil {
		h.respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// UpdateSession changes name, description or favorite. Snapshots are
// immutable; a changed filter set means a new session.
func (h *Handler) UpdateSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var update session.MetaUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	sess, err := h.sessions.UpdateMeta(c.Request.Context(), ownerID(c), id, update)
	if err != nil {
		h.respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), ownerID(c), id); err != nil {
		h.respondSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ShareSession enables the standalone public view and returns the slug.
func (h *Handler) ShareSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.sessions.Share(c.Request.Context(), ownerID(c), id)
	if err != nil {
		h.respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"share_slug": sess.ShareSlug, "standalone": sess.Standalone})
}

func (h *Handler) UnshareSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.Unshare(c.Request.Context(), ownerID(c), id); err != nil {
		h.respondSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSharedSession serves the public standalone view by slug, no owner
// scoping.
func (h *Handler) GetSharedSession(c *gin.Context) {
	sess, err := h.sessions.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrNotShared) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to load shared session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// GetValuationHistory lists past valuations for a listing, newest first.
func (h *Handler) GetValuationHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	records, err := h.history.ListForListing(c.Request.Context(), ownerID(c), c.Param("listing_id"), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list valuation history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list history"})
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetValuationTrend compares the oldest and newest valuation in a window.
func (h *Handler) GetValuationTrend(c *gin.Context) {
	windowDays := 365
	if raw := c.Query("window_days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			windowDays = parsed
		}
	}

	trend, err := h.history.ComputeTrend(c.Request.Context(), ownerID(c), c.Param("listing_id"), windowDays)
	if err != nil {
		if errors.Is(err, history.ErrInsufficientHistory) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not enough history to compute a trend"})
			return
		}
		h.logger.WithError(err).Error("Failed to compute valuation trend")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute trend"})
		return
	}
	c.JSON(http.StatusOK, trend)
}

// ImportListings enqueues a listing batch for the inventory pipeline.
// Processing is asynchronous; cached valuations are purged once the batch
// commits.
func (h *Handler) ImportListings(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.Listings) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listings must not be empty"})
		return
	}
	for _, listing := range req.Listings {
		if listing.ListingID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "every listing needs a listing_id"})
			return
		}
	}

	if err := h.queue.Push(req.Listings); err != nil {
		switch {
		case errors.Is(err, queue.ErrQueueFull):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Import queue is full, retry later"})
		case errors.Is(err, queue.ErrQueueClosed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Import queue is shut down"})
		default:
			h.logger.WithError(err).Error("Failed to enqueue listing batch")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue batch"})
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": len(req.Listings)})
}

// Health reports liveness plus cache effectiveness and queue depth.
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.resultCache != nil {
		body["cache"] = h.resultCache.GetStats()
	}
	if h.queue != nil {
		body["queue_depth"] = h.queue.Len()
	}
	c.JSON(http.StatusOK, body)
}

func sessionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) respondSessionError(c *gin.Context, err error) {
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	h.logger.WithError(err).Error("Session operation failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Session operation failed"})
}

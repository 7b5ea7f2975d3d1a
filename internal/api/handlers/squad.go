package handlers

import (
	"crypto/md5"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fcsquad/optimizer/internal/platform/cache"
	"github.com/fcsquad/optimizer/internal/platform/config"
	"github.com/fcsquad/optimizer/internal/roster"
	"github.com/fcsquad/optimizer/internal/websocket"
)

// ErrorResponse is the envelope for every non-2xx JSON response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// SuccessResponse is the envelope POST /api/v1/squads/validate returns.
type SuccessResponse struct {
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// SquadRequest is the JSON body for POST /api/v1/squads/optimize,
// mirroring the solver request surface of spec.md §6 one-to-one.
type SquadRequest struct {
	Positions      []roster.PositionCode `json:"positions"`
	Budget         int64                 `json:"budget"`
	MinChemistry   int                   `json:"min_chemistry"`
	OwnedOnly      bool                  `json:"owned_only"`
	IncludePlayers []int64               `json:"include_players"`
	CandidateLimit int                   `json:"candidate_limit"`
	MinRating      float64               `json:"min_rating"`
	TimeoutSeconds int                   `json:"timeout_seconds"`
}

// SquadHandler exposes the Squad Optimisation Core over REST, following
// the teacher's handler-struct-with-injected-collaborators shape.
type SquadHandler struct {
	catalogue roster.Catalogue
	owned     roster.OwnedSet
	cache     *cache.SquadCacheService
	wsHub     *websocket.Hub
	config    *config.Config
	logger    *logrus.Logger
}

func NewSquadHandler(
	catalogue roster.Catalogue,
	owned roster.OwnedSet,
	cacheSvc *cache.SquadCacheService,
	wsHub *websocket.Hub,
	cfg *config.Config,
	logger *logrus.Logger,
) *SquadHandler {
	return &SquadHandler{
		catalogue: catalogue,
		owned:     owned,
		cache:     cacheSvc,
		wsHub:     wsHub,
		config:    cfg,
		logger:    logger,
	}
}

// OptimizeSquad handles POST /api/v1/squads/optimize.
func (h *SquadHandler) OptimizeSquad(c *gin.Context) {
	var req SquadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request format",
			Code:  "INVALID_REQUEST",
			Details: map[string]string{
				"validation_error": err.Error(),
			},
		})
		return
	}
	applyDefaults(&req, h.config)

	cacheKey := h.generateCacheKey(req)
	if cached, err := h.cache.GetSquadResult(c.Request.Context(), cacheKey); err == nil && cached != nil {
		h.logger.WithField("cache_key", cacheKey).Info("returning cached squad solve result")
		c.JSON(http.StatusOK, cached)
		return
	}

	requestID := uuid.NewString()
	h.wsHub.BroadcastProgress(requestID, progressEvent{
		Stage:     "initialization",
		Message:   "starting squad solve",
		Timestamp: time.Now(),
	})

	solveReq := roster.SolveRequest{
		Positions:      req.Positions,
		Budget:         req.Budget,
		MinChemistry:   req.MinChemistry,
		OwnedOnly:      req.OwnedOnly,
		IncludePlayers: req.IncludePlayers,
		CandidateLimit: req.CandidateLimit,
		MinRating:      req.MinRating,
		TimeoutSeconds: req.TimeoutSeconds,
		Workers:        h.config.SolverWorkers,
	}

	startTime := time.Now()
	result, err := roster.Solve(c.Request.Context(), h.catalogue, h.owned, solveReq)
	if err != nil {
		h.handleSolveError(c, requestID, err)
		return
	}

	if err := h.cache.SetSquadResult(c.Request.Context(), cacheKey, result, h.config.CacheTTL); err != nil {
		h.logger.WithError(err).Warn("failed to cache squad solve result")
	}

	h.wsHub.BroadcastProgress(requestID, progressEvent{
		Stage:     "completed",
		Message:   fmt.Sprintf("solve completed in %v", time.Since(startTime)),
		Timestamp: time.Now(),
	})

	h.logger.WithFields(logrus.Fields{
		"request_id":      requestID,
		"status":          result.Status,
		"total_chemistry": result.TotalChemistry,
		"total_cost":      result.TotalCost,
		"solve_time":      result.SolveTimeSeconds,
	}).Info("squad solve completed")

	c.Header("X-Request-ID", requestID)
	c.JSON(http.StatusOK, result)
}

// ValidateSquadRequest handles POST /api/v1/squads/validate: performs
// the InputShape validation of spec.md §7 without running the solver.
func (h *SquadHandler) ValidateSquadRequest(c *gin.Context) {
	var req SquadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request format",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	applyDefaults(&req, h.config)

	if err := roster.ValidatePositions(req.Positions); err != nil {
		h.respondCoreError(c, err)
		return
	}
	if req.MinChemistry < 0 || req.MinChemistry > 33 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "min_chemistry must be in [0, 33]",
			Code:  string(roster.InputShape),
		})
		return
	}
	if len(req.IncludePlayers) > roster.SquadSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "include_players must have at most 11 entries",
			Code:  string(roster.InputShape),
		})
		return
	}
	seen := make(map[int64]bool, len(req.IncludePlayers))
	for _, id := range req.IncludePlayers {
		if seen[id] {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "include_players must not contain duplicates",
				Code:  string(roster.InputShape),
			})
			return
		}
		seen[id] = true
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "squad request is valid",
		Data: map[string]interface{}{
			"slot_count":      len(req.Positions),
			"candidate_limit": req.CandidateLimit,
			"timeout_seconds": req.TimeoutSeconds,
		},
	})
}

// GetCacheStatus returns cache statistics.
func (h *SquadHandler) GetCacheStatus(c *gin.Context) {
	status := h.cache.GetStatus(c.Request.Context())
	c.JSON(http.StatusOK, status)
}

type progressEvent struct {
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func applyDefaults(req *SquadRequest, cfg *config.Config) {
	if req.CandidateLimit <= 0 {
		req.CandidateLimit = cfg.DefaultCandidateLimit
	}
	if req.TimeoutSeconds <= 0 {
		req.TimeoutSeconds = cfg.DefaultTimeoutSeconds
	}
}

// errorStatusCodes maps the error kind taxonomy of spec.md §7 to HTTP
// statuses (SPEC_FULL.md §7).
var errorStatusCodes = map[roster.ErrorKind]int{
	roster.InputShape:           http.StatusBadRequest,
	roster.MissingPlayer:        http.StatusBadRequest,
	roster.Unplaceable:          http.StatusBadRequest,
	roster.EmptySlot:            http.StatusBadRequest,
	roster.Infeasible:           http.StatusUnprocessableEntity,
	roster.TimedOut:             http.StatusGatewayTimeout,
	roster.VerificationMismatch: http.StatusInternalServerError,
}

func (h *SquadHandler) handleSolveError(c *gin.Context, requestID string, err error) {
	coreErr, ok := err.(*roster.CoreError)
	if !ok {
		h.logger.WithError(err).Error("unexpected squad solve error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal error",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"error_kind": coreErr.Kind,
		"ea_ids":     coreErr.EAIDs,
	}).Warn("squad solve failed")

	h.respondCoreError(c, coreErr)
}

func (h *SquadHandler) respondCoreError(c *gin.Context, err error) {
	coreErr, ok := err.(*roster.CoreError)
	if !ok {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL_ERROR"})
		return
	}
	status, ok := errorStatusCodes[coreErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	details := map[string]string{}
	if len(coreErr.EAIDs) > 0 {
		details["ea_ids"] = fmt.Sprintf("%v", coreErr.EAIDs)
	}
	if coreErr.Position != "" {
		details["position"] = string(coreErr.Position)
	}
	c.JSON(status, ErrorResponse{
		Error:   coreErr.Message,
		Code:    string(coreErr.Kind),
		Details: details,
	})
}

func (h *SquadHandler) generateCacheKey(req SquadRequest) string {
	hash := md5.New()
	fmt.Fprintf(hash, "%+v", req)
	return fmt.Sprintf("%x", hash.Sum(nil))
}

package lookup

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"partscout/internal/events"
	"partscout/internal/resolver"
	"partscout/internal/token"
	"partscout/pkg/logging"
	"partscout/pkg/models"
)

// Resolver is satisfied by *resolver.Service.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (resolver.Resolution, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// TokenStatus is satisfied by *token.Manager.
type TokenStatus interface {
	Status() token.Status
}

type Handler struct {
	Resolver Resolver
	Catalog  Pinger
	Tokens   TokenStatus // nil when no live source is configured
	Hub      *events.Hub // nil disables /ws

	logger *zap.Logger
}

func NewHandler(res Resolver, catalog Pinger, tokens TokenStatus, hub *events.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		Resolver: res,
		Catalog:  catalog,
		Tokens:   tokens,
		Hub:      hub,
		logger:   logging.OrNop(logger).Named("http"),
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/resolve/:identifier", h.resolveParam) // GET /resolve/D16W7
	r.POST("/resolve", h.resolveBody)             // POST /resolve {"identifier": "..."}
	r.GET("/categories", h.categories)
	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
	r.GET("/debug", h.debug)
	if h.Hub != nil {
		r.GET("/ws", events.WSHandler(h.Hub))
	}
}

func (h *Handler) resolveParam(c *gin.Context) {
	h.resolve(c, c.Param("identifier"))
}

type resolveRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

func (h *Handler) resolveBody(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier is required"})
		return
	}
	h.resolve(c, req.Identifier)
}

func (h *Handler) resolve(c *gin.Context, raw string) {
	res, err := h.Resolver.Resolve(c.Request.Context(), raw)
	if err != nil {
		if re, ok := resolver.AsResolutionError(err); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": re.Err.Error(),
				"code":  re.Code,
			})
			return
		}
		h.logger.Error("resolve failed", zap.String("identifier", raw), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolve failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": models.Categories})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.Catalog.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":        "not_ready",
			"catalog_error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "catalog": "ok"})
}

func (h *Handler) debug(c *gin.Context) {
	out := gin.H{"live_enabled": h.Tokens != nil}
	if h.Tokens != nil {
		out["token"] = h.Tokens.Status()
	}
	if h.Hub != nil {
		out["ws_clients"] = h.Hub.Stats().WSClients
	}
	c.JSON(http.StatusOK, out)
}

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Store     string    `json:"store"`
	DB        string    `json:"db,omitempty"`
}

// StoreCheck reports whether the document store backend is reachable.
type StoreCheck struct {
	Backend string
	Ping    func(ctx context.Context) error
}

type HealthHandler struct {
	serviceName string
	version     string
	store       StoreCheck
	db          *pgxpool.Pool
}

func NewHealthHandler(serviceName, version string, store StoreCheck, db *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		store:       store,
		db:          db,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	pingCtx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK

	storeStatus := h.store.Backend + ":up"
	if h.store.Ping != nil {
		if err := h.store.Ping(pingCtx); err != nil {
			storeStatus = h.store.Backend + ":down"
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	dbStatus := "disabled"
	if h.db != nil {
		if err := h.db.Ping(pingCtx); err != nil {
			dbStatus = "down"
		} else {
			dbStatus = "up"
		}
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Store:     storeStatus,
		DB:        dbStatus,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}

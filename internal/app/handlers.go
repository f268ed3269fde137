package app

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slots-service/internal/slots"
)

// SlotResolver is implemented by *slots.Resolver.
type SlotResolver interface {
	Resolve(ctx context.Context, req slots.Request) (*slots.Resolution, error)
	Today() slots.DayKey
	RangeDays() int
}

// ResultCache is implemented by *SlotCache.
type ResultCache interface {
	Get(ctx context.Context, key string) (*slots.Resolution, bool, error)
	Set(ctx context.Context, key string, res *slots.Resolution) error
}

type App struct {
	Resolver SlotResolver
	// Cache is optional.
	Cache  ResultCache
	Logger *zap.Logger
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

type slotsResponse struct {
	*slots.Resolution
	ActiveDay string `json:"activeDay"`
}

// GET /api/slots?calendarId=&userId=&date=YYYY-MM-DD&days=N
func (a *App) GetSlotsHandler(c *gin.Context) {
	req := slots.Request{
		CalendarID: c.Query("calendarId"),
		StaffID:    c.Query("userId"),
		Anchor:     c.Query("date"),
	}
	if v := strings.TrimSpace(c.Query("days")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
			return
		}
		req.Days = n
	}

	ctx := c.Request.Context()
	var key string
	if a.Cache != nil {
		key = CacheKey(req, a.Resolver.Today(), a.Resolver.RangeDays())
		res, ok, err := a.Cache.Get(ctx, key)
		if err != nil {
			a.Logger.Warn("slot cache read failed", zap.String("key", key), zap.Error(err))
		}
		if ok {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, slotsResponse{Resolution: res, ActiveDay: "allDays"})
			return
		}
	}

	res, err := a.Resolver.Resolve(ctx, req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			a.Logger.Error("resolve slots", zap.String("calendar_id", req.CalendarID), zap.Error(err))
		}
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if a.Cache != nil {
		c.Header("X-Cache", "MISS")
		if err := a.Cache.Set(ctx, key, res); err != nil {
			a.Logger.Warn("slot cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, slotsResponse{Resolution: res, ActiveDay: "allDays"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, slots.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, slots.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, slots.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// GET /healthz
func (a *App) HealthzHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /readyz
func (a *App) ReadyzHandler(c *gin.Context) {
	if a.Ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := a.Ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

type RouterOptions struct {
	Auth           AuthConfig
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewRouter(a *App, opts RouterOptions) *gin.Engine {
	if a.Logger == nil {
		a.Logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(a.Logger), CORS(opts.CORSOrigins))

	router.GET("/healthz", a.HealthzHandler)
	router.GET("/readyz", a.ReadyzHandler)

	api := router.Group("/api")
	api.Use(AuthMiddleware(opts.Auth), Timeout(opts.RequestTimeout))
	{
		api.GET("/slots", a.GetSlotsHandler)
	}
	return router
}

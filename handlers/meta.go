package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Tracks returns all track names for the track filter.
func (h *Handler) Tracks(c echo.Context) error {
	names, err := h.store.Tracks(c.Request().Context())
	if err != nil {
		h.log.Error("list tracks failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "no se pudieron cargar los hipódromos").SetInternal(err)
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, map[string][]string{"hipodromos": names})
}

// Health reports whether the database is reachable.
func (h *Handler) Health(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// FlushCache drops cached reports so the next request recomputes them.
func (h *Handler) FlushCache(c echo.Context) error {
	if h.cache == nil {
		return c.NoContent(http.StatusNoContent)
	}
	if err := h.cache.Flush(c.Request().Context()); err != nil {
		h.log.Error("cache flush failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "cache flush failed").SetInternal(err)
	}
	user, _ := c.Get("subject").(string)
	h.log.Info("pattern cache flushed", zap.String("by", user))
	return c.NoContent(http.StatusNoContent)
}

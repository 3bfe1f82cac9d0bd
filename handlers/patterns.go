package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pistainteligente/pista/patterns"
	"github.com/pistainteligente/pista/store"
)

// maxLimit caps limite so a single request cannot ask for the whole aggregation.
const maxLimit = 500

// msgPatternsUnavailable is shown instead of upstream error detail.
const msgPatternsUnavailable = "no se pudieron cargar los patrones"

type detalleJSON struct {
	Fecha      string `json:"fecha"`
	Hipodromo  string `json:"hipodromo"`
	NroCarrera int    `json:"nro_carrera"`
	Resultado  []int  `json:"resultado"`
}

type patronJSON struct {
	Tipo    string        `json:"tipo"`
	Numeros []int         `json:"numeros"`
	Veces   int           `json:"veces"`
	Detalle []detalleJSON `json:"detalle"`
}

type patronesResponse struct {
	Patrones []patronJSON `json:"patrones"`
}

// Patterns returns repeated Quinela/Trifecta/Superfecta combinations.
//
// Query params: dias, min, exacto, futuro, limite, hipodromo, orden=numeros.
func (h *Handler) Patterns(c echo.Context) error {
	opts, err := h.patternOptions(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	report, err := h.reports.Report(c.Request().Context(), opts)
	if err != nil {
		if errors.Is(err, patterns.ErrInvalidOptions) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		fields := []zap.Field{zap.Error(err), zap.String("key", opts.WithDefaults().CacheKey())}
		var fe *store.FetchError
		if errors.As(err, &fe) {
			fields = append(fields, zap.String("op", fe.Op))
		}
		h.log.Error("pattern report failed", fields...)
		return echo.NewHTTPError(http.StatusInternalServerError, msgPatternsUnavailable).SetInternal(err)
	}

	return c.JSON(http.StatusOK, toResponse(report))
}

func (h *Handler) patternOptions(c echo.Context) (patterns.Options, error) {
	opts := h.defaults
	var orden string
	err := echo.QueryParamsBinder(c).
		Int("dias", &opts.WindowDays).
		Int("min", &opts.MinOccurrences).
		Int("exacto", &opts.ExactOccurrences).
		Bool("futuro", &opts.RequireFutureMatch).
		Int("limite", &opts.MaxResults).
		String("hipodromo", &opts.Track).
		String("orden", &orden).
		BindError()
	if err != nil {
		var be *echo.BindingError
		if errors.As(err, &be) {
			return opts, fmt.Errorf("invalid %s param", be.Field)
		}
		return opts, err
	}

	// zero would silently fall back to the default, so reject it explicitly
	for name, v := range map[string]int{"dias": opts.WindowDays, "min": opts.MinOccurrences, "limite": opts.MaxResults} {
		if c.QueryParam(name) != "" && v < 1 {
			return opts, fmt.Errorf("%s must be at least 1", name)
		}
	}

	switch strings.ToLower(orden) {
	case "", "veces":
	case "numeros":
		opts.SortNumbers = true
	default:
		return opts, fmt.Errorf("invalid orden param %q", orden)
	}
	if opts.MaxResults > maxLimit {
		return opts, fmt.Errorf("limite must be at most %d", maxLimit)
	}
	return opts, nil
}

func toResponse(r patterns.Report) patronesResponse {
	out := make([]patronJSON, 0, len(r.Patterns))
	for _, p := range r.Patterns {
		det := make([]detalleJSON, len(p.Appearances))
		for i, a := range p.Appearances {
			det[i] = detalleJSON{
				Fecha:      a.MeetingDate.Format("2006-01-02"),
				Hipodromo:  a.TrackName,
				NroCarrera: a.RaceNumber,
				Resultado:  a.Result,
			}
		}
		out = append(out, patronJSON{
			Tipo:    p.BetType.Label(),
			Numeros: p.Numbers,
			Veces:   p.Occurrences,
			Detalle: det,
		})
	}
	return patronesResponse{Patrones: out}
}

package handler

import (
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Router registers the people routes. httprouter cannot hold a static
// "count" segment next to the :id wildcard, so /people/:id dispatches it.
func (h *Handler) Router() *httprouter.Router {
	router := httprouter.New()

	get := h.instrument("get", h.GetPerson)
	count := h.instrument("count", h.CountPeople)

	router.POST("/people", h.instrument("create", h.CreatePerson))
	router.GET("/people", h.instrument("search", h.SearchPeople))
	router.GET("/people/:id", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if ps.ByName("id") == "count" {
			count(w, r, ps)
			return
		}
		get(w, r, ps)
	})

	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		hlog.FromRequest(r).Error().Interface("panic", v).Msg("handler panicked")
		w.WriteHeader(http.StatusInternalServerError)
	}

	return router
}

func (h *Handler) instrument(operation string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		m := httpsnoop.CaptureMetricsFn(w, func(w http.ResponseWriter) {
			next(w, r, ps)
		})

		h.metrics.ObserveRequest(operation, m.Code, m.Duration)
	}
}

// WithLogging attaches log and a request id to every request and writes
// one access line per request.
func WithLogging(log zerolog.Logger, next http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})

	return hlog.NewHandler(log)(hlog.RequestIDHandler("req_id", "X-Request-Id")(access(next)))
}

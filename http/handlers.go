package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/hlog"

	"people/cache"
	"people/db"
	"people/metrics"
)

const maxBodyBytes = 64 << 10

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	nicknameMarker = []byte("1")
)

// Store is the persistent side of the handlers; *db.Repository implements it.
type Store interface {
	Insert(ctx context.Context, person db.Person) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*db.Person, error)
	Search(ctx context.Context, term string) ([]db.Person, error)
	Count(ctx context.Context) (int64, error)
}

// Handler serves the people API. The store is authoritative; the cache is
// consulted first where it helps and is never required to succeed.
type Handler struct {
	store   Store
	cache   cache.Cache
	metrics *metrics.Metrics
}

func New(store Store, c cache.Cache, m *metrics.Metrics) *Handler {
	return &Handler{store: store, cache: c, metrics: m}
}

func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	log := hlog.FromRequest(r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Debug().Err(err).Msg("error reading body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var req createRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Debug().Err(err).Msg("error decoding person")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		log.Debug().Err(err).Msg("invalid person")
		writeJSON(w, http.StatusUnprocessableEntity, err)
		return
	}

	person := req.person()
	nicknameKey := cache.NicknameKey(person.Nickname)

	// A marker only exists for a nickname that was stored, so a hit is final.
	// A miss proves nothing and the insert below decides.
	if _, taken := h.lookup(r, "nickname", nicknameKey); taken {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	id, err := h.store.Insert(r.Context(), person)
	switch {
	case errors.Is(err, db.ErrDuplicateKey):
		h.remember(r, nicknameKey, nicknameMarker)
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	case err != nil:
		log.Error().Err(err).Str("nickname", person.Nickname).Msg("error creating person")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	person.ID = id

	if payload, err := json.Marshal(person); err != nil {
		log.Warn().Err(err).Stringer("id", id).Msg("error serializing person for cache")
	} else {
		h.remember(r, cache.IDKey(id), payload)
	}
	h.remember(r, nicknameKey, nicknameMarker)

	log.Debug().Stringer("id", id).Str("nickname", person.Nickname).Msg("created person")

	w.Header().Set("Location", "/people/"+id.String())
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	log := hlog.FromRequest(r)

	id, err := uuid.Parse(ps.ByName("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if payload, found := h.lookup(r, "id", cache.IDKey(id)); found {
		writeRaw(w, http.StatusOK, payload)
		return
	}

	person, err := h.store.GetByID(r.Context(), id)
	switch {
	case errors.Is(err, db.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		log.Error().Err(err).Stringer("id", id).Msg("error fetching person")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(person)
	if err != nil {
		log.Error().Err(err).Stringer("id", id).Msg("error serializing person")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.remember(r, cache.IDKey(id), payload)

	writeRaw(w, http.StatusOK, payload)
}

// SearchPeople is never cached: the term space is unbounded and results
// would go stale on every create.
func (h *Handler) SearchPeople(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	term := r.URL.Query().Get("t")
	if term == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	people, err := h.store.Search(r.Context(), term)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("term", term).Msg("error searching people")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, people)
}

func (h *Handler) CountPeople(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	count, err := h.store.Count(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("error counting people")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeRaw(w, http.StatusOK, strconv.AppendInt(nil, count, 10))
}

// lookup treats a cache failure as a miss.
func (h *Handler) lookup(r *http.Request, kind, key string) ([]byte, bool) {
	value, found, err := h.cache.Get(r.Context(), key)
	switch {
	case err != nil:
		hlog.FromRequest(r).Warn().Err(err).Str("key", key).Msg("cache lookup failed")
		h.metrics.ObserveCacheLookup(kind, "error")
		return nil, false
	case found:
		h.metrics.ObserveCacheLookup(kind, "hit")
		return value, true
	default:
		h.metrics.ObserveCacheLookup(kind, "miss")
		return nil, false
	}
}

// remember writes through to the cache, logging and ignoring failures.
func (h *Handler) remember(r *http.Request, key string, value []byte) {
	if err := h.cache.Set(r.Context(), key, value); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeRaw(w, status, payload)
}

func writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

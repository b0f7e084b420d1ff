// Package api is the REST backend: JSON collections over HTTP, backed by
// the record store. The admin UI is its only intended client, but the
// surface is plain enough for curl.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"finadmin/internal/amqp"
	"finadmin/internal/cache"
	"finadmin/internal/log"
	"finadmin/internal/middleware/ratelimit"
	"finadmin/internal/schema"
	"finadmin/internal/storage"
)

// ChangePublisher announces mutations to interested consumers. May be nil
// when eventing is disabled.
type ChangePublisher interface {
	PublishRecordChange(ctx context.Context, change *amqp.RecordChange) error
}

type Server struct {
	store     *storage.RecordStore
	publisher ChangePublisher
	logger    *log.Logger
	router    chi.Router
	limiter   *ratelimit.Limiter

	// listings holds one cached List response per collection, invalidated
	// on every mutation of that collection.
	listings *cache.LRU[[]schema.Record]
}

func NewServer(store *storage.RecordStore, publisher ChangePublisher, logger *log.Logger) *Server {
	s := &Server{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentAPI),
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		listings:  cache.NewLRU[[]schema.Record](32, 30*time.Second),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.limiter.Middleware)

	r.Route("/api/{collection}", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Put("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops the rate limiter's background cleanup.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	if records, ok := s.listings.Get(collection); ok {
		s.writeJSON(w, http.StatusOK, records)
		return
	}
	records, err := s.store.List(r.Context(), collection)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.listings.Set(collection, records)
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	record, ok := s.decodeRecord(w, r)
	if !ok {
		return
	}

	saved, err := s.store.Create(r.Context(), collection, record)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.listings.Delete(collection)
	s.publish(r, collection, recordID(saved), "create")
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	record, ok := s.decodeRecord(w, r)
	if !ok {
		return
	}

	saved, err := s.store.Update(r.Context(), collection, id, record)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.listings.Delete(collection)
	s.publish(r, collection, id, "update")
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}

	err := s.store.Delete(r.Context(), collection, id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.listings.Delete(collection)
	s.publish(r, collection, id, "delete")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeRecord(w http.ResponseWriter, r *http.Request) (schema.Record, bool) {
	var record schema.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&record); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return nil, false
	}
	return record, true
}

func (s *Server) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid record id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", log.FieldError, err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "request failed",
		log.FieldMethod, r.Method, log.FieldPath, r.URL.Path, log.FieldError, err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// publish sends a change event, best effort. Mutations succeed even when
// the broker is down.
func (s *Server) publish(r *http.Request, collection string, id int64, action string) {
	if s.publisher == nil {
		return
	}
	change := amqp.NewRecordChange(collection, id, action)
	if err := s.publisher.PublishRecordChange(r.Context(), change); err != nil {
		s.logger.WarnContext(r.Context(), "publish record change failed",
			log.FieldCollection, collection, log.FieldRecordID, strconv.FormatInt(id, 10),
			log.FieldError, err)
	}
}

func recordID(rec schema.Record) int64 {
	id, _ := strconv.ParseInt(rec.String("id"), 10, 64)
	return id
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "request",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, ww.Status(),
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldRequestID, middleware.GetReqID(r.Context()),
			log.FieldClientIP, r.RemoteAddr)
	})
}

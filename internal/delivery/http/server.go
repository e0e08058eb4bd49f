package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/tentens-tech/shared-debrid/internal/application"
	"github.com/tentens-tech/shared-debrid/internal/application/command/leasemanagement"
)

const (
	RequestIDHeader = "X-Request-ID"
	MinutesQuery    = "minutes"
)

type Server struct {
	app    *application.Application
	Server *http.Server
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type statusResponse struct {
	Holder  string `json:"holder"`
	EndedAt string `json:"endedAt"`
	Active  bool   `json:"active"`
}

func New(app *application.Application) *Server {
	s := &Server{
		app: app,
	}
	s.Server = &http.Server{
		Handler: s.Handler(),
	}
	if app.Config != nil {
		s.Server.Addr = ":" + app.Config.Server.Port
		s.Server.ReadTimeout = app.Config.Server.Timeout.Read
		s.Server.WriteTimeout = app.Config.Server.Timeout.Write
		s.Server.IdleTimeout = app.Config.Server.Timeout.Idle
	}
	return s
}

// Handler returns the router with every addon route mounted.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware, corsMiddleware)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/{authToken}/{containerID}/status.json", s.handleStatus).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/{authToken}/{containerID}/{username}/manifest.json", s.handleManifest).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/{authToken}/{containerID}/{username}/stream/{type}/{id}.json", s.handleStream).Methods(http.MethodGet, http.MethodOptions)

	return router
}

func (s *Server) Start() error {
	return s.Server.ListenAndServe()
}

func (s *Server) handleManifest(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, newManifest())
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	target := application.Target{
		Token:       vars["authToken"],
		ContainerID: vars["containerID"],
	}
	requester := vars["username"]

	var minutes any
	if r.URL.Query().Has(MinutesQuery) {
		minutes = r.URL.Query().Get(MinutesQuery)
	}

	decision, err := s.app.Access(r.Context(), target, requester, minutes)
	if err != nil {
		requestLogger(r).Errorf("Failed to decide access for %v: %v", requester, err)
		respondError(w, err)
		return
	}

	stream := safeStream()
	if !decision.Granted {
		stream = dangerStream(decision.Holder)
	}
	respond(w, http.StatusOK, StreamResponse{Streams: []Stream{stream}})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	target := application.Target{
		Token:       vars["authToken"],
		ContainerID: vars["containerID"],
	}

	state, err := s.app.Status(r.Context(), target)
	if err != nil {
		requestLogger(r).Errorf("Failed to get status: %v", err)
		respondError(w, err)
		return
	}

	document := state.Serialize()
	respond(w, http.StatusOK, statusResponse{
		Holder:  document.Holder,
		EndedAt: document.EndedAt,
		Active:  state.Active(s.app.Clock.Now()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func respondError(w http.ResponseWriter, err error) {
	var conflict *leasemanagement.ConflictError
	if errors.As(err, &conflict) {
		respond(w, http.StatusConflict, errorResponse{Error: "Lease changed concurrently", Message: err.Error()})
		return
	}

	var corrupt *leasemanagement.StorageCorruptError
	if errors.As(err, &corrupt) {
		respond(w, http.StatusInternalServerError, errorResponse{Error: "Lease document is corrupt", Message: err.Error()})
		return
	}

	respond(w, http.StatusInternalServerError, errorResponse{Error: "Failed to access lease", Message: err.Error()})
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("Failed to write response: %v", err)
	}
}

func requestLogger(r *http.Request) *log.Entry {
	return log.WithFields(log.Fields{
		"request_id": r.Header.Get(RequestIDHeader),
		"path":       r.URL.Path,
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set(RequestIDHeader, requestID)
		}
		w.Header().Set(RequestIDHeader, requestID)

		start := time.Now()
		next.ServeHTTP(w, r)
		requestLogger(r).WithField("duration", time.Since(start)).Debugf("%v %v", r.Method, r.URL.Path)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

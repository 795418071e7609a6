// Package httpapi is the REST transport: POST /{command} with a JSON
// argument list, bearer-token identity, and the shared error taxonomy
// mapped to HTTP statuses.
package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/dam2452/ranchbot/internal/auth"
	"github.com/dam2452/ranchbot/internal/bot"
	"github.com/dam2452/ranchbot/pkg/types"
)

type contextKey string

const identityKey contextKey = "identity"

// Server serves the REST command surface.
type Server struct {
	dispatcher  *bot.Dispatcher
	identities  IdentityResolver
	authLimiter *auth.Limiter
	logger      *slog.Logger
	httpServer  *http.Server
}

// NewServer builds the REST server. chatHandler, when non-nil, is
// mounted at /chat so both transports share one listener.
func NewServer(addr string, dispatcher *bot.Dispatcher, identities IdentityResolver,
	authLimiter *auth.Limiter, logger *slog.Logger, chatHandler http.Handler) *Server {
	s := &Server{
		dispatcher:  dispatcher,
		identities:  identities,
		authLimiter: authLimiter,
		logger:      logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if chatHandler != nil {
		r.Handle("/chat", chatHandler).Methods(http.MethodGet)
	}

	protected := r.PathPrefix("").Subrouter()
	protected.Use(s.authMiddleware)
	protected.HandleFunc("/{command}", s.handleCommand).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      withLogging(logger, r),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // renders can take a while
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. It blocks until shutdown or error.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type commandRequest struct {
	Args []string `json:"args"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	identity, ok := r.Context().Value(identityKey).(types.UserIdentity)
	if !ok {
		writeErrorStatus(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var req commandRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorStatus(w, http.StatusBadRequest, "request body must be JSON with an args array")
			return
		}
	}

	command := mux.Vars(r)["command"]
	resp, err := s.dispatcher.Dispatch(r.Context(), identity, command, req.Args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResponse(w, resp)
}

// authMiddleware resolves the bearer token. Failed resolutions are
// charged against the separate auth window so unauthenticated probing
// is throttled independently of the command window.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeErrorStatus(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := s.identities.Resolve(r.Context(), token)
		if err != nil {
			if limitErr := s.authLimiter.AllowID(token); limitErr != nil {
				writeError(w, limitErr)
				return
			}
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, found := strings.CutPrefix(header, "Bearer "); found {
		return strings.TrimSpace(after)
	}
	return ""
}

func writeResponse(w http.ResponseWriter, resp bot.Response) {
	switch resp.Type {
	case bot.ResponseVideo:
		w.Header().Set("Content-Type", "video/mp4")
		if resp.Filename != "" {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", resp.Filename))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(resp.Video)
	case bot.ResponseJSON:
		writeJSON(w, http.StatusOK, resp.Payload)
	default:
		writeJSON(w, http.StatusOK, map[string]string{
			"type":    string(resp.Type),
			"content": resp.Content,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorStatus(w, types.KindOf(err).HTTPStatus(), err.Error())
}

func writeErrorStatus(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the chat endpoint upgrade to a websocket through the
// logging wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/holos-run/gamescout/internal/catalog"
	"github.com/holos-run/gamescout/internal/games"
	"github.com/holos-run/gamescout/internal/igdb"
)

// maxBodyBytes bounds request bodies accepted by the game endpoints.
const maxBodyBytes = 1 << 20

// KeywordCatalog serves the cached keyword collection.
type KeywordCatalog interface {
	GetAll(ctx context.Context) (*catalog.Snapshot, error)
	Search(ctx context.Context, query string, limit int) ([]igdb.CatalogItem, error)
}

// GameSearcher searches the games collection.
type GameSearcher interface {
	SearchGames(ctx context.Context, filters games.Filters) (*games.Result, error)
	SearchByName(ctx context.Context, text string) ([]igdb.Game, error)
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	// SearchLimit is used when a keyword search has no limit parameter.
	SearchLimit int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server exposes the keyword catalog and game search over HTTP.
type Server struct {
	keywords    KeywordCatalog
	games       GameSearcher
	searchLimit int
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a new Server.
func New(keywords KeywordCatalog, games GameSearcher, config Config) *Server {
	if config.SearchLimit <= 0 {
		config.SearchLimit = catalog.DefaultSearchLimit
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Server{
		keywords:    keywords,
		games:       games,
		searchLimit: config.SearchLimit,
		logger:      config.Logger,
		now:         config.Now,
	}
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/keywords", s.handleKeywords)
	mux.HandleFunc("GET /api/keywords/search", s.handleKeywordSearch)
	mux.HandleFunc("POST /api/games/recommend", s.handleRecommend)
	mux.HandleFunc("POST /api/games/search", s.handleGameSearch)
	mux.HandleFunc("/api/", s.handleNotFound)

	return s.logRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"message":   "server is running",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	snap, err := s.keywords.GetAll(r.Context())
	if err != nil {
		s.internalError(w, r, "failed to get keywords", err)
		return
	}

	items := snap.Items()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(items),
		"keywords": items,
	})
}

func (s *Server) handleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Please provide a search query")
		return
	}

	limit := s.searchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	items, err := s.keywords.Search(r.Context(), query, limit)
	if err != nil {
		s.internalError(w, r, "failed to search keywords", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(items),
		"keywords": items,
	})
}

type idRef struct {
	ID int64 `json:"id"`
}

type recommendRequest struct {
	Platforms []idRef `json:"platforms"`
	Genres    []idRef `json:"genres"`
	Keywords  []idRef `json:"keywords"`
	Rating    float64 `json:"rating"`
	Offset    int     `json:"offset"`
}

func ids(refs []idRef) []int64 {
	if len(refs) == 0 {
		return nil
	}
	out := make([]int64, len(refs))
	for i, ref := range refs {
		out[i] = ref.ID
	}
	return out
}

func (req recommendRequest) filters() games.Filters {
	return games.Filters{
		Platforms: ids(req.Platforms),
		Genres:    ids(req.Genres),
		Keywords:  ids(req.Keywords),
		MinRating: req.Rating,
		Offset:    req.Offset,
	}
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Please provide at least one filter")
		return
	}

	filters := req.filters()
	if filters.Empty() {
		writeError(w, http.StatusBadRequest, "Please provide at least one filter")
		return
	}
	if filters.Offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must not be negative")
		return
	}

	res, err := s.games.SearchGames(r.Context(), filters)
	if err != nil {
		s.internalError(w, r, "failed to get game recommendations", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   res.Count,
		"games":   res.Games,
	})
}

type searchRequest struct {
	Search string `json:"search"`
}

func (s *Server) handleGameSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(w, r, &req); err != nil || strings.TrimSpace(req.Search) == "" {
		writeError(w, http.StatusBadRequest, "Please provide a search term")
		return
	}

	result, err := s.games.SearchByName(r.Context(), strings.TrimSpace(req.Search))
	if err != nil {
		s.internalError(w, r, "failed to search game by name", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  result,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error": "API endpoint not found",
		"path":  r.URL.Path,
	})
}

// internalError logs err with the request id and answers with a generic body.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error(msg,
		slog.String("request_id", RequestID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", slog.Any("error", err))
	}
}

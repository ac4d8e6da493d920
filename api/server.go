// Package api exposes the augmentation pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ruckquest/augmenter"
	"github.com/ruckquest/augmenter/db"
	"github.com/ruckquest/augmenter/gemini"
	"github.com/ruckquest/augmenter/media"
	"github.com/ruckquest/augmenter/sitemap"
	"github.com/ruckquest/augmenter/storage"
)

// Server represents the API server
type Server struct {
	runner      Runner
	store       Store
	archive     storage.Backend
	db          *db.DB
	addr        string
	server      *http.Server
	mux         *http.ServeMux
	corsEnabled bool
}

// Config contains server configuration
type Config struct {
	Addr         string
	DBConfig     db.Config
	EngineConfig augmenter.Config
	CORSEnabled  bool

	GeminiAPIKey string
	GeminiModel  string

	GetImgAPIKey string
	GetImgAPIURL string
	SerperAPIKey string

	WordPressBaseURL     string
	WordPressUsername    string
	WordPressAppPassword string

	StorageBackend string // "filesystem" or "s3"
	StoragePath    string
	S3Config       storage.S3Config
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		EngineConfig:   augmenter.DefaultConfig(),
		CORSEnabled:    true,
		StorageBackend: "filesystem",
		StoragePath:    "./storage",
	}
}

// NewServer creates a new API server
func NewServer(ctx context.Context, config Config) (*Server, error) {
	database, err := db.New(config.DBConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	archive, err := newArchive(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var uploader *media.WordPressUploader
	if config.WordPressBaseURL != "" {
		uploader = media.NewWordPressUploader(
			config.WordPressBaseURL,
			config.WordPressUsername,
			config.WordPressAppPassword,
			nil,
		)
	}
	var images *media.GetImgClient
	if config.GetImgAPIKey != "" {
		images = media.NewGetImgClient(config.GetImgAPIKey, config.GetImgAPIURL, nil)
	}
	var videos *media.SerperClient
	if config.SerperAPIKey != "" {
		videos = media.NewSerperClient(config.SerperAPIKey, "", nil)
	}
	resolver := media.NewResolver(images, videos, uploader)

	suggester, err := gemini.NewSuggester(ctx, config.GeminiAPIKey, config.GeminiModel, resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize suggester: %w", err)
	}

	runner := NewPipeline(
		config.EngineConfig,
		suggester,
		sitemap.NewClient(&http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
		database,
		archive,
	)

	s := &Server{
		runner:      runner,
		store:       database,
		archive:     archive,
		db:          database,
		addr:        config.Addr,
		mux:         http.NewServeMux(),
		corsEnabled: config.CORSEnabled,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      otelhttp.NewHandler(s.middleware(s.mux), "augmenter-api"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // suggestion fan-out can be slow
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

func newArchive(ctx context.Context, config Config) (storage.Backend, error) {
	if config.StorageBackend == "s3" {
		return storage.NewS3Storage(ctx, config.S3Config)
	}
	return storage.New(storage.Config{BasePath: config.StoragePath})
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/augment", s.handleAugment)
	s.mux.HandleFunc("/api/runs", s.handleListRuns)
	s.mux.HandleFunc("/api/runs/", s.handleRun) // /api/runs/{id} and /api/runs/{id}/document
	s.mux.Handle("/metrics", promhttp.Handler())
}

// Start starts the API server
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database for metrics collection
func (s *Server) DB() *db.DB {
	return s.db
}

// middleware applies common middleware to all routes
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.corsEnabled {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		start := time.Now()
		if r.URL.Path != "/health" {
			log.Printf("%s %s", r.Method, r.URL.Path)
		}

		next.ServeHTTP(w, r)

		if r.URL.Path != "/health" {
			log.Printf("%s %s - completed in %v", r.Method, r.URL.Path, time.Since(start))
		}
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	count, err := s.store.Count()
	status := "healthy"
	if err != nil {
		status = "degraded"
		log.Printf("health check count failed: %v", err)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"runs":   count,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type augmentRequest struct {
	HTML              string `json:"html"`
	BaseURL           string `json:"base_url"`
	ForceRefreshPages bool   `json:"force_refresh_pages"`
}

// handleAugment runs one augmentation pass over the posted document
func (s *Server) handleAugment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req augmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.HTML == "" {
		respondError(w, http.StatusBadRequest, "html is required")
		return
	}
	if req.BaseURL == "" {
		respondError(w, http.StatusBadRequest, "base_url is required")
		return
	}

	run, err := s.runner.Run(r.Context(), req.HTML, strings.TrimRight(req.BaseURL, "/"), req.ForceRefreshPages)
	if err != nil {
		log.Printf("augmentation failed: %v", err)
		respondError(w, http.StatusInternalServerError, "augmentation failed")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// handleListRuns returns stored runs, newest first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 20
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	runs, err := s.store.ListRuns(limit, offset)
	if err != nil {
		log.Printf("failed to list runs: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	total, err := s.store.Count()
	if err != nil {
		log.Printf("failed to count runs: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to count runs")
		return
	}

	// Listings omit the full document; fetch a run by ID for that.
	for _, run := range runs {
		run.Document = ""
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":   runs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// handleRun routes /api/runs/{id} and /api/runs/{id}/document
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if rest == "" {
		respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	if id, ok := strings.CutSuffix(rest, "/document"); ok {
		s.handleRunDocument(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetRun(w, r, rest)
	case http.MethodDelete:
		s.handleDeleteRun(w, r, rest)
	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request, id string) {
	run, err := s.store.GetRunByID(id)
	if err != nil {
		log.Printf("failed to get run %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.store.DeleteRunByID(id); err != nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"id":     id,
	})
}

// handleRunDocument serves an archived document version as HTML
func (s *Server) handleRunDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	run, err := s.store.GetRunByID(id)
	if err != nil {
		log.Printf("failed to get run %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}

	key := run.AugmentedKey
	if r.URL.Query().Get("version") == "0" {
		key = run.PristineKey
	}
	if key == "" {
		respondError(w, http.StatusNotFound, "document not archived")
		return
	}

	doc, err := s.archive.LoadDocument(r.Context(), key)
	if err != nil {
		log.Printf("failed to load document %s: %v", key, err)
		respondError(w, http.StatusNotFound, "document not found")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

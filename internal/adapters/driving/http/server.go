package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	authService      driving.AuthService
	userService      driving.UserService
	webSourceService driving.WebSourceService
	consolidation    driving.ConsolidationService
	classification   driving.ClassificationService
	extraction       driving.ExtractionService
	pipeline         driving.PipelineOrchestrator
	relations        driving.RelationService

	// Infrastructure
	taskQueue   driven.TaskQueue
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	userService driving.UserService,
	webSourceService driving.WebSourceService,
	consolidation driving.ConsolidationService,
	classification driving.ClassificationService,
	extraction driving.ExtractionService,
	pipeline driving.PipelineOrchestrator,
	relations driving.RelationService,
	taskQueue driven.TaskQueue,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		authService:      authService,
		userService:      userService,
		webSourceService: webSourceService,
		consolidation:    consolidation,
		classification:   classification,
		extraction:       extraction,
		pipeline:         pipeline,
		relations:        relations,
		taskQueue:        taskQueue,
		db:               db,
		redisClient:      redisClient,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Create middleware
	authMiddleware := NewAuthMiddleware(s.authService)
	requireReviewer := authMiddleware.RequireRole(domain.RoleAdmin, domain.RoleReviewer)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Auth endpoints (public)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)

	// Setup endpoint (public, one-time use)
	s.router.HandleFunc("POST /api/v1/setup", s.handleSetup)

	// Auth endpoints (authenticated)
	s.router.Handle("POST /api/v1/auth/logout",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleLogout)))

	// User endpoints
	s.router.Handle("GET /api/v1/me",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetMe)))
	s.router.Handle("POST /api/v1/me/password",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleChangePassword)))

	// Admin-only user management
	s.router.Handle("GET /api/v1/users",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleListUsers))))
	s.router.Handle("POST /api/v1/users",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleCreateUser))))
	s.router.Handle("DELETE /api/v1/users/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleDeleteUser))))

	// Web source endpoints (admin-only for mutations)
	s.router.Handle("GET /api/v1/sources",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListSources)))
	s.router.Handle("POST /api/v1/sources",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleCreateSource))))
	s.router.Handle("GET /api/v1/sources/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetSource)))
	s.router.Handle("PUT /api/v1/sources/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleUpdateSource))))
	s.router.Handle("DELETE /api/v1/sources/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleDeleteSource))))

	// Classification endpoints
	s.router.Handle("POST /api/v1/classify",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleClassifyBatch))))
	s.router.Handle("POST /api/v1/pages/{id}/classify",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleClassifyPage))))
	s.router.Handle("POST /api/v1/corrections",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleRecordCorrection))))

	// Rule endpoints (admin-only for mutations)
	s.router.Handle("GET /api/v1/rules",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListRules)))
	s.router.Handle("POST /api/v1/rules",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleSaveRule))))
	s.router.Handle("GET /api/v1/rules/suggestions",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListSuggestions)))
	s.router.Handle("POST /api/v1/rules/suggest",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleSuggestRules))))
	s.router.Handle("GET /api/v1/rules/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetRule)))
	s.router.Handle("DELETE /api/v1/rules/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleDeleteRule))))
	s.router.Handle("POST /api/v1/rules/{id}/activate",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleActivateSuggestion))))

	// Extraction endpoints
	s.router.Handle("POST /api/v1/extract",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleExtractBatch))))
	s.router.Handle("POST /api/v1/pages/{id}/extract",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleExtractPage))))
	s.router.Handle("GET /api/v1/pages/{id}/metadata",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetMetadata)))
	s.router.Handle("GET /api/v1/pages/{id}/metadata/versions",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListMetadataVersions)))

	// Consolidation endpoints
	s.router.Handle("POST /api/v1/consolidate",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleConsolidateBatch))))
	s.router.Handle("GET /api/v1/documents",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListDocuments)))
	s.router.Handle("GET /api/v1/documents/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetDocument)))
	s.router.Handle("POST /api/v1/documents/{id}/rebuild",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleRebuildStructure))))
	s.router.Handle("POST /api/v1/documents/{id}/approve",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleApproveDocument))))
	s.router.Handle("POST /api/v1/documents/{id}/revoke",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleRevokeDocument))))

	// Pipeline endpoints
	s.router.Handle("GET /api/v1/documents/{id}/gate",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleCheckGate)))
	s.router.Handle("POST /api/v1/documents/{id}/advance",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleAdvance))))
	s.router.Handle("POST /api/v1/documents/{id}/auto-advance",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleAutoAdvance))))
	s.router.Handle("POST /api/v1/documents/{id}/override",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleOverride))))
	s.router.Handle("POST /api/v1/documents/{id}/reject",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleReject))))
	s.router.Handle("POST /api/v1/documents/bulk-advance",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleBulkAdvance))))
	s.router.Handle("POST /api/v1/documents/bulk-reject",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleBulkReject))))
	s.router.Handle("POST /api/v1/pipeline/sweep",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleSweep))))
	s.router.Handle("GET /api/v1/documents/{id}/history",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleHistory)))

	// Relation endpoints
	s.router.Handle("POST /api/v1/documents/{id}/relations/detect",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleDetectForDocument))))
	s.router.Handle("POST /api/v1/relations/detect",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleDetectBatch))))
	s.router.Handle("GET /api/v1/relations",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListRelations)))
	s.router.Handle("GET /api/v1/relations/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetRelation)))
	s.router.Handle("GET /api/v1/documents/{id}/relations",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListDocumentRelations)))
	s.router.Handle("POST /api/v1/relations/{id}/confirm",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleConfirmRelation))))
	s.router.Handle("POST /api/v1/relations/{id}/dismiss",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleDismissRelation))))
	s.router.Handle("POST /api/v1/relations/{id}/resolve",
		authMiddleware.Authenticate(
			requireReviewer(http.HandlerFunc(s.handleResolveRelation))))

	// Task endpoints (admin-only)
	s.router.Handle("POST /api/v1/tasks",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleEnqueueTask))))
	s.router.Handle("GET /api/v1/tasks",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleListTasks))))
	s.router.Handle("GET /api/v1/tasks/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleGetTask))))
	s.router.Handle("POST /api/v1/tasks/{id}/cancel",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleCancelTask))))
	s.router.Handle("GET /api/v1/admin/queue/stats",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleQueueStats))))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "start the server")
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config and creates the logger, then New() assembles:
//   sqlite.DB → TokenService/PasswordService → AuthService/LanguageService
//   → AuthHandler/LanguageHandler → routes
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/lang-notes/internal/auth"
	"github.com/sakif/lang-notes/internal/config"
	"github.com/sakif/lang-notes/internal/handler"
	"github.com/sakif/lang-notes/internal/middleware"
	sqliteRepo "github.com/sakif/lang-notes/internal/repository/sqlite"
	"github.com/sakif/lang-notes/internal/service"
)

// maxBodyBytes caps request bodies. Image note details travel inline as
// base64, so this has to be well above a typical JSON payload.
const maxBodyBytes = 10 << 20 // 10 MiB

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). When the server shuts down,
// we must close this connection to flush any pending writes and release the
// file lock. This is handled in Start() during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB // owned by server, closed on shutdown
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
// This is where the entire dependency chain is assembled:
//  1. Open the database connection (sqlite.New)
//  2. Create the auth primitives (TokenService, PasswordService, optional
//     GoogleProvider)
//  3. Create the service layer with the repository interfaces
//  4. Create the handlers with the services
//  5. Wire handlers to routes
//
// Each layer only receives what it needs:
// - Services get the repository interfaces (not the concrete sqlite.DB)
// - Handlers get the services (not the repositories or DB)
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package. Import aliases are common in Go when
// package names would otherwise collide or be unclear.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                        → liveness probe
//	POST   /user/register                  → create account, issue tokens
//	POST   /user/login/username-password   → password login
//	POST   /user/login/google              → login by Google subject ID
//	POST   /user/checkUser                 → probe account by external ID
//	POST   /user/refresh-token             → rotate token pair
//	GET    /auth/google/login              → start OAuth code flow   [optional]
//	GET    /auth/google/callback           → finish OAuth code flow  [optional]
//	/languages/* (all behind RequireUser):
//	GET    /languages/                     → list {id, name} refs
//	GET    /languages/details              → full language by id or name
//	GET    /languages/getNotes             → notes collection (body param)
//	GET    /languages/getNote/{note_id}    → single note (body param)
//	GET    /languages/note                 → single note (query params)
//	GET    /languages/note/by-name         → single note by language name
//	POST   /languages/addNewCourse         → create language
//	POST   /languages/notes/newNote        → create note
//	PUT    /languages/notes/updateNote     → partial note update
//	DELETE /languages/deleteLanguage       → delete language + ownership entry
//	DELETE /languages/deleteNote           → delete note
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. CORS + MaxBody — browser clients and payload cap
// 5. Logger — logs each request with timing info
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500

	s.router.Use(middleware.CORS)
	s.router.Use(middleware.MaxBody(maxBodyBytes))
	s.router.Use(middleware.Logger(s.logger))

	// === Auth primitives ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.AccessTTL, s.config.RefreshTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var google *auth.GoogleProvider
	if s.config.GoogleEnabled() {
		google = auth.NewGoogleProvider(
			s.config.GoogleClientID,
			s.config.GoogleClientSecret,
			s.config.GoogleCallbackURL,
		)
	}

	// === Services and handlers ===
	// DEPENDENCY CHAIN:
	//   s.db (sqlite.DB) → implements repository.UserRepository and
	//   repository.LanguageRepository; the services receive the interfaces,
	//   the handlers receive the services.
	//
	// Notice: the handlers never touch the database directly.
	// The services never touch HTTP. Clean separation!
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	authHandler := handler.NewAuthHandler(authService, google, s.logger)

	languageService := service.NewLanguageService(s.db, s.db, s.logger)
	languageHandler := handler.NewLanguageHandler(languageService, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	s.router.Route("/user", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login/username-password", authHandler.HandleLoginPassword)
		r.Post("/login/google", authHandler.HandleLoginGoogle)
		r.Post("/checkUser", authHandler.HandleCheckUser)
		r.Post("/refresh-token", authHandler.HandleRefreshToken)
	})

	// The browser-redirect OAuth flow only exists when credentials are
	// configured; /user/login/google above works either way.
	if google != nil {
		s.router.Route("/auth/google", func(r chi.Router) {
			r.Get("/login", authHandler.HandleGoogleLogin)
			r.Get("/callback", authHandler.HandleGoogleCallback)
		})
	}

	// Everything under /languages requires a valid access token. The
	// middleware resolves the token's email claim to a live user and puts
	// the user in the request context.
	s.router.Route("/languages", func(r chi.Router) {
		r.Use(auth.RequireUser(tokens, s.db))

		r.Get("/", languageHandler.HandleList)
		r.Get("/details", languageHandler.HandleDetails)
		r.Get("/getNotes", languageHandler.HandleGetNotes)
		r.Get("/getNote/{note_id}", languageHandler.HandleGetNoteByPath)
		r.Get("/note", languageHandler.HandleGetNote)
		r.Get("/note/by-name", languageHandler.HandleGetNoteByName)
		r.Post("/addNewCourse", languageHandler.HandleCreateLanguage)
		r.Post("/notes/newNote", languageHandler.HandleCreateNote)
		r.Put("/notes/updateNote", languageHandler.HandleUpdateNote)
		r.Delete("/deleteLanguage", languageHandler.HandleDeleteLanguage)
		r.Delete("/deleteNote", languageHandler.HandleDeleteNote)
	})

	return nil
}

// Router exposes the configured handler, mainly for tests that want to drive
// the full stack through httptest without binding a port.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
//
// If we skip step 3, the database file might be left in an inconsistent state.
// The `defer s.db.Close()` ensures this happens even if something panics.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("google_oauth", s.config.GoogleEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

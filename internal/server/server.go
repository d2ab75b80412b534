// Package server is the composition root: it wires the store, services,
// handlers and middleware into a router and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	main: config → logger → store (sqlite | postgres)
//	New:  store → services → handlers → routes
//	      hub (and broker, when AMQP_URL is set) → services as the publisher
//
// Keeping the wiring here leaves main.go small and lets tests build a full
// server around an in-memory store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/petmatch/petmatch/internal/auth"
	"github.com/petmatch/petmatch/internal/config"
	"github.com/petmatch/petmatch/internal/handler"
	"github.com/petmatch/petmatch/internal/middleware"
	"github.com/petmatch/petmatch/internal/notify"
	"github.com/petmatch/petmatch/internal/repository"
	"github.com/petmatch/petmatch/internal/service"
)

// Server owns the router and every long-lived resource behind it. Start
// closes them on shutdown; Close does it for callers that never Start.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger

	store  repository.Store
	hub    *notify.Hub
	broker *notify.Broker // nil without AMQP_URL
	tokens *auth.TokenService
}

// New builds the server around store. On success the server owns store and
// closes it on shutdown; on error the caller still does.
func New(cfg *config.Config, store repository.Store, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		hub:    notify.NewHub(logger),
	}

	if cfg.JWT.Secret != "" {
		tokens, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL)
		if err != nil {
			return nil, fmt.Errorf("creating token service: %w", err)
		}
		s.tokens = tokens
	} else {
		logger.Warn("JWT_SECRET not set, tokens are disabled")
	}

	if cfg.AMQP.URL != "" {
		broker, err := notify.DialBroker(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to broker: %w", err)
		}
		s.broker = broker
	}

	if err := s.setupRoutes(); err != nil {
		if s.broker != nil {
			s.broker.Close()
		}
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// publisher is where services send live notifications: straight into the
// hub, or through the broker so every instance's hub receives them.
func (s *Server) publisher() service.Publisher {
	if s.broker != nil {
		return s.broker
	}
	return s.hub
}

// setupRoutes registers middleware and routes.
//
//	GET  /health
//	GET  /auth/github/login, /auth/github/callback   (when GitHub is configured)
//	POST /auth/logout
//	     /api/auth/...          accounts
//	GET  /api/me                requires a token
//	     /api/pets/...          catalogue and recommendations
//	     /api/adoption/...      adopt, unadopt, history
//	     /api/messages/...      messages and conversations
//	GET  /api/notifications/stream/{userId}   websocket push
//
// Middleware order: request id first so everything after can log it, the
// recoverer inside the logger so a panic is logged as a 500.
func (s *Server) setupRoutes() error {
	passwords, err := auth.NewPasswordService(s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}

	publisher := s.publisher()
	accounts := service.NewAccountService(s.store, passwords, s.tokens, s.logger)
	pets := service.NewPetService(s.store, s.config.LegacyOwnerRepair, s.logger)
	adoptions := service.NewAdoptionService(s.store, publisher, s.logger)
	messages := service.NewMessageService(s.store, publisher, s.logger)

	accountHandler := handler.NewAccountHandler(accounts, s.logger)
	petHandler := handler.NewPetHandler(pets, s.logger)
	adoptionHandler := handler.NewAdoptionHandler(adoptions, s.logger)
	messageHandler := handler.NewMessageHandler(messages, s.logger)
	streamHandler := handler.NewStreamHandler(s.hub, s.store, s.allowOrigin, s.logger)

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(s.config.CORSOrigins))
	r.Use(auth.OptionalAuth(s.tokens))

	r.Get("/health", handler.HandleHealth(s.store, s.logger))

	if s.config.GitHubEnabled() {
		gh := auth.NewGitHubProvider(s.config.GitHub.ClientID, s.config.GitHub.ClientSecret, s.config.GitHub.CallbackURL)
		ghHandler := handler.NewGitHubHandler(gh, accounts, s.tokens, s.config.FrontendURL, s.logger)
		r.Get("/auth/github/login", ghHandler.HandleLogin)
		r.Get("/auth/github/callback", ghHandler.HandleCallback)
	}
	r.Post("/auth/logout", handler.HandleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", accountHandler.HandleRegister)
			r.Post("/login", accountHandler.HandleLogin)
			r.Get("/user/{id}", accountHandler.HandleGetUser)
			r.Put("/profile/{id}", accountHandler.HandleUpdateProfile)
			r.Post("/user/{id}/notifications/read", accountHandler.HandleMarkRead)
		})
		r.With(auth.RequireAuth(s.tokens)).Get("/me", accountHandler.HandleMe)

		r.Route("/pets", func(r chi.Router) {
			r.Get("/", petHandler.HandleList)
			r.Post("/", petHandler.HandleCreate)
			r.Get("/search/{name}", petHandler.HandleSearch)
			r.Get("/filter/{type}", petHandler.HandleFilter)
			r.Get("/recommendations/{userId}", petHandler.HandleRecommendations)
			r.Get("/{id}", petHandler.HandleGet)
		})

		r.Route("/adoption", func(r chi.Router) {
			r.Post("/adopt", adoptionHandler.HandleAdopt)
			r.Post("/unadopt", adoptionHandler.HandleUnadopt)
			r.Get("/all", adoptionHandler.HandleList)
			r.Get("/user/{userId}", adoptionHandler.HandleListByUser)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", messageHandler.HandleSend)
			r.Get("/{userId}", messageHandler.HandleForUser)
			r.Get("/{userId}/conversations", messageHandler.HandleConversations)
		})

		r.Get("/notifications/stream/{userId}", streamHandler.HandleStream)
	})

	return nil
}

// allowOrigin applies the CORS origin list to websocket handshakes.
// Non-browser clients send no Origin and are let through.
func (s *Server) allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || middleware.OriginAllowed(s.config.CORSOrigins, origin)
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully:
//
//  1. stop accepting connections and drain in-flight requests
//  2. close the hub, which ends open notification streams
//  3. close the broker and the store
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.broker != nil {
		go func() {
			if err := s.broker.Forward(ctx, s.hub); err != nil {
				s.logger.Error("broker forwarding stopped", slog.String("error", err.Error()))
			}
		}()
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.Database.Driver),
			slog.Bool("broker", s.broker != nil),
			slog.Bool("github", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		s.Close()
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	// hijacked websocket connections are not tracked by Shutdown; closing
	// the hub ends them
	srv.RegisterOnShutdown(func() { s.hub.Close() })

	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

// Close releases the hub, the broker and the store. It is safe to call
// more than once.
func (s *Server) Close() error {
	var errs []error
	if err := s.hub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing hub: %w", err))
	}
	if s.broker != nil {
		if err := s.broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing broker: %w", err))
		}
		s.broker = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store: %w", err))
		}
		s.store = nil
	}
	return errors.Join(errs...)
}

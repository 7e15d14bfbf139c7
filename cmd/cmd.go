package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-gallery-backend/internal/config"
	"event-gallery-backend/internal/handlers"
	"event-gallery-backend/internal/messaging"
	"event-gallery-backend/internal/middleware"
	"event-gallery-backend/internal/repository"
	"event-gallery-backend/internal/services"
	"event-gallery-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to open state store")
	}
	defer closeStore()

	assets, err := openAssets(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Assets.Driver).Msg("Failed to open asset store")
	}

	// Initialize collaborators
	var transport messaging.Transport
	if cfg.Twilio.AccountSID != "" {
		transport = messaging.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.BaseURL)
	} else {
		log.Warn().Msg("Twilio is not configured, notifications will only be logged")
	}

	notifier, err := services.NewNotifier(services.NotifierConfig{
		RichPrefix:       cfg.Notify.RichPrefix,
		SMSFrom:          cfg.Twilio.SMSFrom,
		WhatsAppFrom:     cfg.Twilio.WhatsAppFrom,
		GalleryBaseURL:   cfg.Gallery.BaseURL,
		SMSTemplate:      cfg.Notify.SMSTemplate,
		WhatsAppTemplate: cfg.Notify.WhatsAppTemplate,
	}, transport, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create notifier")
	}

	provider := newFaceMatcher(cfg.FaceMatch)

	credentials, err := services.NewCredentialTable(adminCredentials(cfg.Auth.Admins))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load admin credentials")
	}
	if len(credentials) == 0 {
		log.Warn().Msg("No admin accounts configured, the dashboard API is unreachable")
	}

	// Initialize services
	registry := services.NewRegistry(store, services.WithDefaultExpiration(cfg.Gallery.DefaultExpirationDays))
	if err := registry.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load registry state")
	}

	sessions := services.NewSessionStore(credentials, cfg.Auth.Secret)
	matcher := services.NewMatcher(registry, provider, notifier)
	resolver := services.NewGalleryResolver(registry, cfg.Assets.MediaURLPrefix)
	wsHub := services.NewWSHub()
	mediaService := services.NewMediaService(registry, assets, matcher, resolver, wsHub)
	registrationService := services.NewRegistrationService(registry, assets, provider, matcher)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(sessions)
	eventHandler := handlers.NewEventHandler(registry, resolver, wsHub, cfg.Gallery.BaseURL)
	mediaHandler := handlers.NewMediaHandler(registry, mediaService, cfg.Assets.MaxUploadBytes)
	registrationHandler := handlers.NewRegistrationHandler(registrationService, cfg.Assets.MaxUploadBytes)
	galleryHandler := handlers.NewGalleryHandler(resolver)
	wsHandler := handlers.NewWebSocketHandler(wsHub, resolver)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/login", authHandler.Login)
		r.Post("/uploads", mediaHandler.Upload)
		r.Post("/register", registrationHandler.Register)
		r.Get("/gallery/{token}", galleryHandler.Gallery)
		r.Get("/media/{filename}", mediaHandler.Serve)
		r.Get("/slideshow/{event_id}", galleryHandler.Slideshow)
		r.Get("/slideshow/{event_id}/ws", wsHandler.HandleSlideshow)
		r.Get("/public/events/{event_id}", galleryHandler.PublicEvent)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(sessions))
			r.Post("/logout", authHandler.Logout)
			r.Get("/events", eventHandler.ListEvents)
			r.Post("/events", eventHandler.CreateEvent)
			r.Get("/events/{event_id}", eventHandler.GetEvent)
			r.Put("/events/{event_id}", eventHandler.UpdateEvent)
			r.Delete("/events/{event_id}", eventHandler.DeleteEvent)
			r.Get("/events/{event_id}/registration", eventHandler.RegistrationLink)
			r.Get("/events/{event_id}/leads", eventHandler.Leads)
			r.Get("/events/{event_id}/uploads", eventHandler.Uploads)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStore selects the registry persistence backend
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		log.Info().Msg("Database connection established")

		pg := repository.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return pg, db.Close, nil
	case "memory":
		log.Warn().Msg("Using in-memory state, nothing survives a restart")
		return repository.NewMemoryStore(), func() {}, nil
	default:
		return repository.NewFileStore(cfg.Storage.StateFile), func() {}, nil
	}
}

// openAssets selects where selfies and media are kept
func openAssets(ctx context.Context, cfg *config.Config) (storage.AssetStore, error) {
	if cfg.Assets.Driver == "s3" {
		return storage.NewS3Store(ctx, storage.S3Config{
			Region:    cfg.AWS.Region,
			Bucket:    cfg.AWS.S3Bucket,
			Prefix:    cfg.AWS.S3Prefix,
			AccessKey: cfg.AWS.AccessKey,
			SecretKey: cfg.AWS.SecretKey,
			Endpoint:  cfg.AWS.Endpoint,
		})
	}
	return storage.NewLocalStore(cfg.Assets.LocalDir)
}

func newFaceMatcher(cfg config.FaceMatchConfig) services.FaceMatcher {
	switch cfg.Driver {
	case "sample":
		log.Warn().Msg("Using the sampling face matcher, matches are random")
		return services.SampleMatcher{Max: cfg.SampleMax}
	case "http":
		return services.NewHTTPMatcher(cfg.Endpoint, time.Duration(cfg.TimeoutSeconds)*time.Second)
	default:
		return services.NoopMatcher{}
	}
}

func adminCredentials(admins []config.AdminUser) []services.AdminCredential {
	out := make([]services.AdminCredential, 0, len(admins))
	for _, a := range admins {
		out = append(out, services.AdminCredential{
			Username:     a.Username,
			Password:     a.Password,
			PasswordHash: a.PasswordHash,
		})
	}
	return out
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/onboardhq/apiserver/config"
	"github.com/onboardhq/apiserver/internal/db"
	"github.com/onboardhq/apiserver/internal/handlers"
	"github.com/onboardhq/apiserver/internal/mq"
	"github.com/onboardhq/apiserver/internal/services"
	"github.com/onboardhq/apiserver/internal/store"
	"github.com/onboardhq/apiserver/internal/storage"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.Publisher
}

// New constructs a Server: store backend per config, services on top, and
// the chi router with the teacher middleware stack.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	userRepo, progressRepo, sessionRepo, dbConn, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userService := services.NewUserService(userRepo)
	sessionService := services.NewSessionService(sessionRepo)
	progressService := services.NewProgressService(progressRepo, userRepo)

	events, err := openEvents(ctx, cfg)
	if err != nil {
		closeDB(dbConn)
		return nil, err
	}
	if events != nil {
		progressService.WithEvents(events)
	}

	materials, err := openMaterials(ctx, cfg)
	if err != nil {
		closeDB(dbConn)
		return nil, err
	}

	authMiddleware := handlers.RequireAuth(userService, sessionService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, userService, sessionService)
		r.Route("/progress", func(r chi.Router) {
			handlers.ProgressRouter(r, progressService, authMiddleware)
		})
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminRouter(r, userService, progressService, authMiddleware)
		})
		if materials != nil {
			handlers.MaterialRouter(r, materials, authMiddleware)
		}
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.events != nil {
		_ = s.events.Close()
	}
	closeDB(s.db)
	return s.httpServer.Close()
}

func openStore(ctx context.Context, cfg config.Config) (services.UserRepository, services.ProgressRepository, services.SessionRepository, *sql.DB, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		mem := store.NewMemoryStore()
		return mem.Users(), mem.Progress(), mem.Sessions(), nil, nil
	case config.StoreFile:
		fileStore, err := store.OpenFileStore(cfg.Store.FilePath)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return fileStore.Users(), fileStore.Progress(), fileStore.Sessions(), nil, nil
	case config.StorePostgres:
		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return store.NewUserRepository(dbConn), store.NewProgressRepository(dbConn), store.NewSessionRepository(dbConn), dbConn, nil
	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func openMaterials(ctx context.Context, cfg config.Config) (*storage.Materials, error) {
	var backend storage.ObjectStorage
	switch cfg.Storage.Backend {
	case "":
		return nil, nil
	case config.StorageMinio:
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case config.StorageGCS:
		client, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	materials := storage.NewMaterials(backend)
	if err := materials.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return materials, nil
}

func openEvents(ctx context.Context, cfg config.Config) (*mq.Publisher, error) {
	var backend mq.Backend
	switch cfg.Events.Backend {
	case "":
		return nil, nil
	case config.EventRabbitMQ:
		client, err := mq.NewRabbitMQClient(cfg.Events.RabbitMQ)
		if err != nil {
			return nil, err
		}
		backend = client
	case config.EventPubSub:
		client, err := mq.NewPubSubClient(ctx, cfg.Events.PubSub)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}

	return mq.NewPublisher(backend, cfg.Events.Topic), nil
}

func closeDB(dbConn *sql.DB) {
	if dbConn != nil {
		_ = dbConn.Close()
	}
}

package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/marketplace-backend/internal/config"
	"github.com/shinyyama/marketplace-backend/internal/db"
	"github.com/shinyyama/marketplace-backend/internal/media"
	appmw "github.com/shinyyama/marketplace-backend/internal/middleware"
	"github.com/shinyyama/marketplace-backend/internal/repository"
	"github.com/shinyyama/marketplace-backend/internal/server"
	"github.com/shinyyama/marketplace-backend/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	pool := db.NewPool(gdb, cfg.DBMaxConnections, cfg.DBAcquireTimeout)
	defer pool.Close()

	// Serving without tables would only produce 500s.
	if err := db.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	store, err := media.Open(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}

	authMw, err := appmw.NewAuthMiddleware(ctx, cfg.FirebaseProjectID)
	if err != nil {
		return err
	}

	repo := repository.NewProductRepository(pool)
	opts := server.Options{
		Products:       service.NewProductService(repo, store),
		URLs:           store,
		DB:             pool,
		Auth:           authMw,
		BodyLimit:      cfg.MaxUploadSize,
		OriginSuffixes: cfg.CORSOriginSuffixes,
	}
	if local, ok := store.(*media.LocalStore); ok {
		opts.StaticDir = local.Root()
		opts.StaticPrefix = cfg.UploadsBaseURL
	}
	srv := server.New(opts)

	go service.RunReconciler(ctx, service.NewReconcileService(repo, store), cfg.MediaGCInterval,
		service.ReconcileOptions{Grace: cfg.MediaGCGrace})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s media=%s", addr, cfg.MediaBackend)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

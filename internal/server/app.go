// Package server wires configuration, storage and transports together and
// runs the REST API and the gRPC health endpoint until a shutdown signal.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophfeed/internal/logging"
	"github.com/dmitrijs2005/gophfeed/internal/server/auth"
	"github.com/dmitrijs2005/gophfeed/internal/server/config"
	"github.com/dmitrijs2005/gophfeed/internal/server/httpapi"
	"github.com/dmitrijs2005/gophfeed/internal/server/posts"
	"github.com/dmitrijs2005/gophfeed/internal/server/refreshtokens"
	"github.com/dmitrijs2005/gophfeed/internal/server/services"
	"github.com/dmitrijs2005/gophfeed/internal/server/shared/db"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/gophfeed/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	repos  db.RepositoryManager
	http   *httpapi.Server
	health *gs.HealthServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, "json", c.LogLevel)

	rm, err := db.NewRepositoryManager(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database configured, users are kept in memory")
	}

	signer := auth.NewSigner(c.SecretKey, c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	as := services.NewAuthService(
		rm.Users(),
		refreshtokens.NewMemoryRegistry(),
		signer,
		auth.NewArgon2Hasher(auth.DefaultArgon2Params),
		logger,
	)

	return &App{
		config: c,
		logger: logger,
		repos:  rm,
		http:   httpapi.NewServer(c.EndpointAddrHTTP, logger, as, posts.NewMemoryStore(), signer, c.AllowedOrigins),
		health: gs.NewHealthServer(c.EndpointAddrGRPC, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until a signal arrives or one of the servers fails, in which
// case the other one is stopped as well.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.http.Run(gctx) })
	g.Go(func() error { return app.health.Run(gctx) })

	err := g.Wait()

	if cerr := app.repos.Close(); cerr != nil {
		app.logger.Error(ctx, "closing storage failed", "error", cerr)
	}
	if err != nil {
		app.logger.Error(ctx, "server stopped with error", "error", err)
	}
	return err
}

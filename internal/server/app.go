// Package server assembles and runs the backoffice application: the
// PostgreSQL store, voucher object storage, push gateway, one workflow
// controller per entity type and the HTTP API on top of them.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/transdovic/backoffice/internal/logging"
	"github.com/transdovic/backoffice/internal/server/auth"
	"github.com/transdovic/backoffice/internal/server/config"
	"github.com/transdovic/backoffice/internal/server/controller"
	"github.com/transdovic/backoffice/internal/server/httpapi"
	"github.com/transdovic/backoffice/internal/server/models"
	"github.com/transdovic/backoffice/internal/server/objstore"
	"github.com/transdovic/backoffice/internal/server/push"
	"github.com/transdovic/backoffice/internal/server/querycache"
	"github.com/transdovic/backoffice/internal/server/session"
	"github.com/transdovic/backoffice/internal/server/store"
)

// logNotifier routes user-facing mutation failures into the structured
// log. The HTTP layer already returns the same message to the caller.
type logNotifier struct {
	logger logging.Logger
}

func (n *logNotifier) Notify(message string) {
	n.logger.Warn(context.Background(), "user notification", "message", message)
}

// App owns the wired application.
type App struct {
	config *config.Config
	logger logging.Logger
	store  *store.Postgres
	http   *httpapi.Server
}

// newController wires the standard workflow stack for one entity type:
// a list cache fetching from the table, a modal session and the shared
// failure notifier.
func newController[E any](key string, st controller.Store[E], notifier controller.Notifier, logger logging.Logger) *controller.Controller[E] {
	cache := querycache.New(func(ctx context.Context, _ string) ([]E, error) {
		return st.Select(ctx)
	})
	return controller.New(controller.Config[E]{
		Key:      key,
		Store:    st,
		Cache:    cache,
		Session:  session.New[E](),
		Notifier: notifier,
		Logger:   logger,
	})
}

// NewApp builds the application from cfg, running migrations on the way.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	pg, err := store.NewPostgres(ctx, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	storage, err := objstore.New(ctx, objstore.Config{
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		BaseEndpoint:  cfg.Storage.BaseEndpoint,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	authSvc := auth.NewService(pg.Admins(), cfg.Auth.SecretKey, cfg.Auth.TokenValidity)
	pushSvc := push.New(cfg.Push.Endpoint, cfg.Push.ServerKey, pg.DeviceTokens(), logger)
	notifier := &logNotifier{logger: logger}

	httpSrv := httpapi.New(httpapi.Deps{
		Addr:   cfg.HTTP.Addr,
		Logger: logger,
		Auth:   authSvc,

		Users:     newController[models.User](store.KeyUsers, pg.Users(), notifier, logger),
		Vehicles:  newController[models.Vehicle](store.KeyVehicles, pg.Vehicles(), notifier, logger),
		Farms:     newController[models.Farm](store.KeyFarms, pg.Farms(), notifier, logger),
		Peajes:    newController[models.Peaje](store.KeyPeajes, pg.Peajes(), notifier, logger),
		Servicios: newController[models.Servicio](store.KeyServicios, pg.Servicios(), notifier, logger),
		Botiquin:  newController[models.BotiquinItem](store.KeyBotiquin, pg.Botiquin(), notifier, logger),

		Expenses:     pg.ExpenseLines(),
		Storage:      storage,
		Push:         pushSvc,
		MapWidgetKey: cfg.Map.WidgetKey,
	})

	return &App{config: cfg, logger: logger, store: pg, http: httpSrv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until the context is cancelled or a termination signal
// arrives, then closes the store.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	err := app.http.Run(ctx)

	if closeErr := app.store.Close(); closeErr != nil {
		app.logger.Error(ctx, "closing store", "error", closeErr.Error())
	}
	return err
}

// Package httpapi exposes the backoffice workflows over a JSON HTTP API:
// one generic CRUD mount per entity type plus login, voucher upload,
// device registration and the client-config passthrough.
package httpapi

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/transdovic/backoffice/internal/logging"
	"github.com/transdovic/backoffice/internal/server/auth"
	"github.com/transdovic/backoffice/internal/server/controller"
	"github.com/transdovic/backoffice/internal/server/models"
	"github.com/transdovic/backoffice/internal/server/push"
	"github.com/transdovic/backoffice/internal/server/store"
)

// Storage is the object-storage surface the API needs.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	PublicURL(key string) string
	PresignedGetURL(ctx context.Context, key string) (string, error)
}

// Deps wires a Server.
type Deps struct {
	Addr   string
	Logger logging.Logger

	Auth *auth.Service

	Users     *controller.Controller[models.User]
	Vehicles  *controller.Controller[models.Vehicle]
	Farms     *controller.Controller[models.Farm]
	Peajes    *controller.Controller[models.Peaje]
	Servicios *controller.Controller[models.Servicio]
	Botiquin  *controller.Controller[models.BotiquinItem]

	Expenses *store.ExpenseLineRepository
	Storage  Storage
	Push     *push.Service

	MapWidgetKey string
}

// Server is the HTTP front of the backoffice.
type Server struct {
	Deps
}

// New builds a Server from deps.
func New(deps Deps) *Server {
	return &Server{Deps: deps}
}

// Router assembles the chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/api/login", s.handleLogin)
	r.Get("/api/client-config", s.handleClientConfig)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireAuth)

		mountEntity(pr, "/api/users", s.Users, func(u models.User) string { return u.ID }, nil)
		mountEntity(pr, "/api/vehicles", s.Vehicles, func(v models.Vehicle) string { return v.ID }, nil)
		mountEntity(pr, "/api/farms", s.Farms, func(f models.Farm) string { return f.ID }, nil)
		mountEntity(pr, "/api/peajes", s.Peajes, func(p models.Peaje) string { return p.ID }, nil)
		mountEntity(pr, "/api/servicios", s.Servicios, func(v models.Servicio) string { return v.ID },
			&entityHooks{afterCreate: s.notifyServicioCreated})
		mountEntity(pr, "/api/botiquin", s.Botiquin, func(b models.BotiquinItem) string { return b.ID }, nil)

		pr.Get("/api/servicios/{id}/expenses", s.handleListExpenses)
		pr.Post("/api/servicios/{id}/expenses", s.handleAddExpense)
		pr.Delete("/api/servicios/{id}/expenses/{lineId}", s.handleDeleteExpense)

		pr.Post("/api/uploads/vouchers", s.handleVoucherUpload)
		pr.Get("/api/uploads/vouchers/link", s.handleVoucherLink)
		pr.Post("/api/devices", s.handleRegisterDevice)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.Logger.Info(ctx, "stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.Logger.Info(ctx, "starting HTTP server", "address", s.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type ctxKey string

const adminIDKey ctxKey = "admin_id"

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, errUnauthorized())
			return
		}

		adminID, err := s.Auth.Verify(token)
		if err != nil {
			writeError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminIDKey, adminID)))
	})
}

// notifyServicioCreated broadcasts detached from the request so a slow
// gateway never delays the response; the broadcast outcome does not
// affect the CRUD workflow.
func (s *Server) notifyServicioCreated() {
	if s.Push == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Push.Broadcast(ctx, "Nuevo servicio", "Se registró un nuevo servicio"); err != nil {
			s.Logger.Warn(ctx, "servicio broadcast failed", "error", err.Error())
		}
	}()
}

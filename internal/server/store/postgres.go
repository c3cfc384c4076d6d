package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/transdovic/backoffice/internal/server/migrations"
	"github.com/transdovic/backoffice/internal/server/models"
)

// Postgres owns the database handle and hands out the per-entity gateways.
// Construct it once at startup; it runs the embedded migrations before
// returning.
type Postgres struct {
	db *sql.DB

	users     *Table[models.User]
	vehicles  *VehicleStore
	farms     *Table[models.Farm]
	peajes    *Table[models.Peaje]
	servicios *Table[models.Servicio]
	botiquin  *Table[models.BotiquinItem]

	expenseLines *ExpenseLineRepository
	admins       *AdminRepository
	deviceTokens *DeviceTokenRepository
}

// NewPostgres opens dsn over the pgx stdlib driver, runs migrations and
// builds the entity gateways.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	p := &Postgres{
		db:           db,
		users:        UserTable(db),
		vehicles:     NewVehicleStore(db),
		farms:        FarmTable(db),
		peajes:       PeajeTable(db),
		servicios:    ServicioTable(db),
		botiquin:     BotiquinTable(db),
		expenseLines: NewExpenseLineRepository(db),
		admins:       NewAdminRepository(db),
		deviceTokens: NewDeviceTokenRepository(db),
	}

	if err := p.runMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return p, nil
}

func (p *Postgres) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	return goose.UpContext(ctx, p.db, ".")
}

func (p *Postgres) Conn() *sql.DB { return p.db }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Users() *Table[models.User]            { return p.users }
func (p *Postgres) Vehicles() *VehicleStore               { return p.vehicles }
func (p *Postgres) Farms() *Table[models.Farm]            { return p.farms }
func (p *Postgres) Peajes() *Table[models.Peaje]          { return p.peajes }
func (p *Postgres) Servicios() *Table[models.Servicio]    { return p.servicios }
func (p *Postgres) Botiquin() *Table[models.BotiquinItem] { return p.botiquin }

func (p *Postgres) ExpenseLines() *ExpenseLineRepository { return p.expenseLines }
func (p *Postgres) Admins() *AdminRepository             { return p.admins }
func (p *Postgres) DeviceTokens() *DeviceTokenRepository { return p.deviceTokens }

package store

import (
	"github.com/transdovic/backoffice/internal/dbx"
	"github.com/transdovic/backoffice/internal/server/models"
)

// Cache keys, one per entity type. The query cache and the entity
// controllers share these tags.
const (
	KeyUsers     = "users"
	KeyVehicles  = "vehicles"
	KeyFarms     = "farms"
	KeyPeajes    = "peajes"
	KeyServicios = "servicios"
	KeyBotiquin  = "botiquin_items"
)

// UserTable returns the Remote Store gateway for users.
func UserTable(db dbx.DBTX) *Table[models.User] {
	return NewTable(db, TableSpec[models.User]{
		Table:   "users",
		Columns: []string{"dni", "name", "email", "phone", "role", "license_number"},
		SortBy:  "name",
		ScanRow: func(rs RowScanner) (models.User, error) {
			var u models.User
			err := rs.Scan(&u.ID, &u.DNI, &u.Name, &u.Email, &u.Phone, &u.Role, &u.LicenseNumber)
			return u, err
		},
		Args: func(u models.User) []any {
			return []any{u.DNI, u.Name, u.Email, u.Phone, u.Role, u.LicenseNumber}
		},
		ID:    func(u models.User) string { return u.ID },
		SetID: func(u models.User, id string) models.User { u.ID = id; return u },
	})
}

// VehicleTable returns the Remote Store gateway for vehicles.
func VehicleTable(db dbx.DBTX) *Table[models.Vehicle] {
	return NewTable(db, TableSpec[models.Vehicle]{
		Table:   "vehicles",
		Columns: []string{"plate", "brand", "model", "year", "capacity_kg", "soat_expiry"},
		SortBy:  "plate",
		ScanRow: func(rs RowScanner) (models.Vehicle, error) {
			var v models.Vehicle
			err := rs.Scan(&v.ID, &v.Plate, &v.Brand, &v.Model, &v.Year, &v.CapacityKg, &v.SoatExpiry)
			return v, err
		},
		Args: func(v models.Vehicle) []any {
			return []any{v.Plate, v.Brand, v.Model, v.Year, v.CapacityKg, v.SoatExpiry}
		},
		ID:    func(v models.Vehicle) string { return v.ID },
		SetID: func(v models.Vehicle, id string) models.Vehicle { v.ID = id; return v },
	})
}

// FarmTable returns the Remote Store gateway for farms.
func FarmTable(db dbx.DBTX) *Table[models.Farm] {
	return NewTable(db, TableSpec[models.Farm]{
		Table:   "farms",
		Columns: []string{"name", "ruc", "city_id", "latitude", "longitude"},
		SortBy:  "name",
		ScanRow: func(rs RowScanner) (models.Farm, error) {
			var f models.Farm
			err := rs.Scan(&f.ID, &f.Name, &f.RUC, &f.CityID, &f.Latitude, &f.Longitude)
			return f, err
		},
		Args: func(f models.Farm) []any {
			return []any{f.Name, f.RUC, f.CityID, f.Latitude, f.Longitude}
		},
		ID:    func(f models.Farm) string { return f.ID },
		SetID: func(f models.Farm, id string) models.Farm { f.ID = id; return f },
	})
}

// PeajeTable returns the Remote Store gateway for toll points.
func PeajeTable(db dbx.DBTX) *Table[models.Peaje] {
	return NewTable(db, TableSpec[models.Peaje]{
		Table:   "peajes",
		Columns: []string{"name", "cost", "route_name", "latitude", "longitude"},
		SortBy:  "name",
		ScanRow: func(rs RowScanner) (models.Peaje, error) {
			var p models.Peaje
			err := rs.Scan(&p.ID, &p.Name, &p.Cost, &p.RouteName, &p.Latitude, &p.Longitude)
			return p, err
		},
		Args: func(p models.Peaje) []any {
			return []any{p.Name, p.Cost, p.RouteName, p.Latitude, p.Longitude}
		},
		ID:    func(p models.Peaje) string { return p.ID },
		SetID: func(p models.Peaje, id string) models.Peaje { p.ID = id; return p },
	})
}

// ServicioTable returns the Remote Store gateway for freight services.
func ServicioTable(db dbx.DBTX) *Table[models.Servicio] {
	return NewTable(db, TableSpec[models.Servicio]{
		Table: "servicios",
		Columns: []string{"date", "origin_farm_id", "destination_farm_id",
			"vehicle_id", "driver_id", "status", "freight_amount"},
		SortBy: "date",
		ScanRow: func(rs RowScanner) (models.Servicio, error) {
			var s models.Servicio
			err := rs.Scan(&s.ID, &s.Date, &s.OriginFarmID, &s.DestinationFarmID,
				&s.VehicleID, &s.DriverID, &s.Status, &s.FreightAmount)
			return s, err
		},
		Args: func(s models.Servicio) []any {
			return []any{s.Date, s.OriginFarmID, s.DestinationFarmID,
				s.VehicleID, s.DriverID, s.Status, s.FreightAmount}
		},
		ID:    func(s models.Servicio) string { return s.ID },
		SetID: func(s models.Servicio, id string) models.Servicio { s.ID = id; return s },
	})
}

// BotiquinTable returns the Remote Store gateway for medical-kit items.
func BotiquinTable(db dbx.DBTX) *Table[models.BotiquinItem] {
	return NewTable(db, TableSpec[models.BotiquinItem]{
		Table:   "botiquin_items",
		Columns: []string{"name", "quantity", "expiry_date", "vehicle_id"},
		SortBy:  "name",
		ScanRow: func(rs RowScanner) (models.BotiquinItem, error) {
			var b models.BotiquinItem
			err := rs.Scan(&b.ID, &b.Name, &b.Quantity, &b.ExpiryDate, &b.VehicleID)
			return b, err
		},
		Args: func(b models.BotiquinItem) []any {
			return []any{b.Name, b.Quantity, b.ExpiryDate, b.VehicleID}
		},
		ID:    func(b models.BotiquinItem) string { return b.ID },
		SetID: func(b models.BotiquinItem, id string) models.BotiquinItem { b.ID = id; return b },
	})
}

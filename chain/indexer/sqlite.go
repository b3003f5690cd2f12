package indexer

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	// modernc is a pure-Go version, but its errors have less useful info.
	_ "github.com/mattn/go-sqlite3"

	"go.wheelz.io/wchain/log"
	"go.wheelz.io/wchain/types"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// stateTables are all the projection tables, in delete-friendly order.
var stateTables = []string{
	"vehicle_attached_client_id_item",
	"vehicle_technical_control_item",
	"vehicle_history_item",
	"vehicle_sinister_infos",
	"vehicle_infos",
	"vehicle_features",
	"vehicle_user",
	"vehicle",
}

// SQLStore implements Store on a local sqlite database.
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore opens (or creates) the sqlite database at path and applies the
// embedded migrations.
func NewSQLStore(path string) (*SQLStore, error) {
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite doesn't support multiple concurrent writers.
	// Since we execute queries from many goroutines, allowing multiple open
	// connections may lead to concurrent writes, resulting in confusing
	// "database is locked" errors.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, err
	}
	goose.SetLogger(log.GooseLogger())
	goose.SetBaseFS(embedMigrations)
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}
	return &SQLStore{db: sqlDB}, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

// Ping reports whether the database answers queries.
func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Reset drops all projected state, keeping the schema.
func (s *SQLStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, table := range stateTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveVehicle stores the vehicle, replacing any previous projection of the
// same VIN.
func (s *SQLStore) SaveVehicle(ctx context.Context, v *types.Vehicle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := deleteVehicleTx(ctx, tx, v.VIN); err != nil {
		return err
	}
	if err := insertVehicleTx(ctx, tx, v); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateVehicleByVin merges the given changes into the stored vehicle. A
// non-nil section replaces the stored one entirely; when userID is not empty
// it becomes the vehicle owner. Returns ErrVehicleNotFound when the VIN has
// no projection.
func (s *SQLStore) UpdateVehicleByVin(ctx context.Context, vin, userID string, changes *types.VehicleChanges) error {
	current, err := s.GetVehicleByVin(ctx, vin)
	if err != nil {
		return err
	}
	if changes != nil {
		if changes.Features != nil {
			current.Features = *changes.Features
		}
		if changes.Infos != nil {
			current.Infos = *changes.Infos
		}
		if changes.History != nil {
			current.History = changes.History
		}
		if changes.TechnicalControls != nil {
			current.TechnicalControls = changes.TechnicalControls
		}
		if changes.SinisterInfos != nil {
			current.SinisterInfos = *changes.SinisterInfos
		}
		if changes.AttachedClientsIds != nil {
			current.AttachedClientsIds = changes.AttachedClientsIds
		}
	}
	if userID != "" {
		current.UserID = userID
	}
	return s.SaveVehicle(ctx, current)
}

// RemoveVehicleByVin deletes the projection of the VIN. Removing an absent
// VIN is not an error.
func (s *SQLStore) RemoveVehicleByVin(ctx context.Context, vin string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := deleteVehicleTx(ctx, tx, vin); err != nil {
		return err
	}
	return tx.Commit()
}

// GetVehicleByVin returns the projected vehicle for the VIN.
func (s *SQLStore) GetVehicleByVin(ctx context.Context, vin string) (*types.Vehicle, error) {
	return loadVehicle(ctx, s.db, vin)
}

// GetVehicleByLicensePlate returns the projected vehicle carrying the plate.
func (s *SQLStore) GetVehicleByLicensePlate(ctx context.Context, plate string) (*types.Vehicle, error) {
	var vin string
	err := s.db.QueryRowContext(ctx,
		"SELECT vehicle_vin FROM vehicle_infos WHERE license_plate = ?", plate).Scan(&vin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, err
	}
	return loadVehicle(ctx, s.db, vin)
}

// CountVehicles returns the number of projected vehicles.
func (s *SQLStore) CountVehicles(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vehicle").Scan(&count)
	return count, err
}

// GetVehiclesPage returns one page of vehicles ordered by VIN, optionally
// filtered by owner and by attached client.
func (s *SQLStore) GetVehiclesPage(ctx context.Context, params types.PaginationParams,
	filter VehicleFilter) (*types.PaginatedVehicles, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = types.DefaultPageSize
	}

	where, args := vehicleFilterClause(filter)

	var total int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vehicle v"+where, args...).Scan(&total)
	if err != nil {
		return nil, err
	}

	query := "SELECT v.vin FROM vehicle v" + where + " ORDER BY v.vin LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query,
		append(args, params.PerPage, (params.Page-1)*params.PerPage)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vins []string
	for rows.Next() {
		var vin string
		if err := rows.Scan(&vin); err != nil {
			return nil, err
		}
		vins = append(vins, vin)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := &types.PaginatedVehicles{
		Items: []types.Vehicle{},
		Meta: types.Pagination{
			Page:    params.Page,
			PerPage: params.PerPage,
			Total:   total,
		},
	}
	for _, vin := range vins {
		v, err := loadVehicle(ctx, s.db, vin)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, *v)
	}
	return page, nil
}

func vehicleFilterClause(filter VehicleFilter) (string, []any) {
	var conds []string
	var args []any
	if len(filter.UserIDs) > 0 {
		conds = append(conds, fmt.Sprintf(
			"v.vin IN (SELECT vehicle_vin FROM vehicle_user WHERE user_id IN (%s))",
			placeholders(len(filter.UserIDs))))
		for _, id := range filter.UserIDs {
			args = append(args, id)
		}
	}
	if len(filter.ClientIDs) > 0 {
		conds = append(conds, fmt.Sprintf(
			"v.vin IN (SELECT vehicle_vin FROM vehicle_attached_client_id_item WHERE client_id IN (%s))",
			placeholders(len(filter.ClientIDs))))
		for _, id := range filter.ClientIDs {
			args = append(args, id)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func deleteVehicleTx(ctx context.Context, tx execer, vin string) error {
	for _, table := range stateTables {
		key := "vehicle_vin"
		if table == "vehicle" {
			key = "vin"
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, key), vin); err != nil {
			return err
		}
	}
	return nil
}

func insertVehicleTx(ctx context.Context, tx execer, v *types.Vehicle) error {
	if _, err := tx.ExecContext(ctx, "INSERT INTO vehicle (vin) VALUES (?)", v.VIN); err != nil {
		return err
	}
	if v.UserID != "" {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO vehicle_user (vehicle_vin, user_id) VALUES (?, ?)",
			v.VIN, v.UserID); err != nil {
			return err
		}
	}
	f := v.Features
	if _, err := tx.ExecContext(ctx, `INSERT INTO vehicle_features (
		vehicle_vin, brand, model, cv_power, color, tvv, cnit_number, reception_type,
		technically_admissible_ptac, ptac, ptra, pt_service, ptav, category, gender,
		ce_body, national_body, reception_number, displacement, net_power, energy,
		seating_number, standing_places_number, sonorous_power_level, engine_speed,
		co2_emission, pollution_code, power_mass_ratio
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		v.VIN, f.Brand, f.Model, f.CvPower, f.Color, f.TVV, f.CnitNumber, f.ReceptionType,
		f.TechnicallyAdmissiblePTAC, f.Ptac, f.Ptra, f.PtService, f.Ptav, f.Category, f.Gender,
		f.CeBody, f.NationalBody, f.ReceptionNumber, f.Displacement, f.NetPower, f.Energy,
		f.SeatingNumber, f.StandingPlacesNumber, f.SonorousPowerLevel, f.EngineSpeed,
		f.Co2Emission, f.PollutionCode, f.PowerMassRatio); err != nil {
		return err
	}
	i := v.Infos
	if _, err := tx.ExecContext(ctx, `INSERT INTO vehicle_infos (
		vehicle_vin, holder_count, first_registration_in_france_date,
		first_siv_registration_date, license_plate, siv_conversion_date
	) VALUES (?,?,?,?,?,?)`,
		v.VIN, i.HolderCount, i.FirstRegistrationInFranceDate,
		i.FirstSivRegistrationDate, i.LicensePlate, i.SivConversionDate); err != nil {
		return err
	}
	si := v.SinisterInfos
	if _, err := tx.ExecContext(ctx, `INSERT INTO vehicle_sinister_infos (
		vehicle_vin, sinister_count, last_resolution_date, last_sinister_date
	) VALUES (?,?,?,?)`,
		v.VIN, si.Count, si.LastResolutionDate, si.LastSinisterDate); err != nil {
		return err
	}
	for pos, item := range v.History {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO vehicle_history_item (vehicle_vin, position, date, type) VALUES (?,?,?,?)",
			v.VIN, pos, item.Date, item.Type); err != nil {
			return err
		}
	}
	for pos, item := range v.TechnicalControls {
		if _, err := tx.ExecContext(ctx, `INSERT INTO vehicle_technical_control_item (
			vehicle_vin, position, date, result, result_raw, nature, km, file_url
		) VALUES (?,?,?,?,?,?,?,?)`,
			v.VIN, pos, item.Date, item.Result, item.ResultRaw, item.Nature,
			item.Km, item.FileURL); err != nil {
			return err
		}
	}
	for pos, clientID := range v.AttachedClientsIds {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO vehicle_attached_client_id_item (vehicle_vin, position, client_id) VALUES (?,?,?)",
			v.VIN, pos, clientID); err != nil {
			return err
		}
	}
	return nil
}

func loadVehicle(ctx context.Context, q queryer, vin string) (*types.Vehicle, error) {
	v := &types.Vehicle{VIN: vin}

	var exists int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM vehicle WHERE vin = ?", vin).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrVehicleNotFound
	}

	err = q.QueryRowContext(ctx,
		"SELECT user_id FROM vehicle_user WHERE vehicle_vin = ?", vin).Scan(&v.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	f := &v.Features
	err = q.QueryRowContext(ctx, `SELECT
		brand, model, cv_power, color, tvv, cnit_number, reception_type,
		technically_admissible_ptac, ptac, ptra, pt_service, ptav, category, gender,
		ce_body, national_body, reception_number, displacement, net_power, energy,
		seating_number, standing_places_number, sonorous_power_level, engine_speed,
		co2_emission, pollution_code, power_mass_ratio
		FROM vehicle_features WHERE vehicle_vin = ?`, vin).Scan(
		&f.Brand, &f.Model, &f.CvPower, &f.Color, &f.TVV, &f.CnitNumber, &f.ReceptionType,
		&f.TechnicallyAdmissiblePTAC, &f.Ptac, &f.Ptra, &f.PtService, &f.Ptav, &f.Category, &f.Gender,
		&f.CeBody, &f.NationalBody, &f.ReceptionNumber, &f.Displacement, &f.NetPower, &f.Energy,
		&f.SeatingNumber, &f.StandingPlacesNumber, &f.SonorousPowerLevel, &f.EngineSpeed,
		&f.Co2Emission, &f.PollutionCode, &f.PowerMassRatio)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	i := &v.Infos
	err = q.QueryRowContext(ctx, `SELECT
		holder_count, first_registration_in_france_date, first_siv_registration_date,
		license_plate, siv_conversion_date
		FROM vehicle_infos WHERE vehicle_vin = ?`, vin).Scan(
		&i.HolderCount, &i.FirstRegistrationInFranceDate, &i.FirstSivRegistrationDate,
		&i.LicensePlate, &i.SivConversionDate)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	si := &v.SinisterInfos
	err = q.QueryRowContext(ctx, `SELECT
		sinister_count, last_resolution_date, last_sinister_date
		FROM vehicle_sinister_infos WHERE vehicle_vin = ?`, vin).Scan(
		&si.Count, &si.LastResolutionDate, &si.LastSinisterDate)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	rows, err := q.QueryContext(ctx,
		"SELECT date, type FROM vehicle_history_item WHERE vehicle_vin = ? ORDER BY position", vin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item types.VehicleHistoryItem
		if err := rows.Scan(&item.Date, &item.Type); err != nil {
			return nil, err
		}
		v.History = append(v.History, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx, `SELECT date, result, result_raw, nature, km, file_url
		FROM vehicle_technical_control_item WHERE vehicle_vin = ? ORDER BY position`, vin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item types.VehicleTechnicalControl
		if err := rows.Scan(&item.Date, &item.Result, &item.ResultRaw, &item.Nature,
			&item.Km, &item.FileURL); err != nil {
			return nil, err
		}
		v.TechnicalControls = append(v.TechnicalControls, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx,
		"SELECT client_id FROM vehicle_attached_client_id_item WHERE vehicle_vin = ? ORDER BY position", vin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var clientID string
		if err := rows.Scan(&clientID); err != nil {
			return nil, err
		}
		v.AttachedClientsIds = append(v.AttachedClientsIds, clientID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return v, nil
}

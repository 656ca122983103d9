package listingpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

const listingColumns = `id, title, description, price, location, year, km_driven, fuel_type, transmission,
	body_type, color, engine_capacity, power_output, torque, seating_capacity, fuel_consumption,
	owner_count, registration_state, features, image_urls, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(r rowScanner) (*model.Listing, error) {
	var l model.Listing
	err := r.Scan(&l.ID,
		&l.Title,
		&l.Description,
		&l.Price,
		&l.Location,
		&l.Year,
		&l.KmDriven,
		&l.FuelType,
		&l.Transmission,
		&l.BodyType,
		&l.Color,
		&l.EngineCapacity,
		&l.PowerOutput,
		&l.Torque,
		&l.SeatingCapacity,
		&l.FuelConsumption,
		&l.OwnerCount,
		&l.RegistrationState,
		&l.Features,
		&l.ImageURLs,
		&l.CreatedAt,
		&l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (p PostgresRepo) Create(ctx context.Context, l *model.Listing) error {
	query := `INSERT INTO listings (` + listingColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	_, err := p.DB.Master.ExecContext(ctx, query, l.ID, l.Title, l.Description, l.Price, l.Location, l.Year, l.KmDriven,
		l.FuelType, l.Transmission, l.BodyType, l.Color, l.EngineCapacity, l.PowerOutput, l.Torque, l.SeatingCapacity,
		l.FuelConsumption, l.OwnerCount, l.RegistrationState, l.Features, l.ImageURLs, l.CreatedAt, l.UpdatedAt)
	return err
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Listing, error) {
	query := `SELECT ` + listingColumns + `
	FROM listings
	WHERE id = $1`

	l, err := scanListing(p.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrListingNotFound // 404
		default:
			return nil, err // 500
		}
	}
	return l, nil
}

func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Listing, error) {
	query, args := buildListQuery(req)

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("Error while closing *sql.Rows after scanning")
		}
	}()

	listings := make([]model.Listing, 0, req.Limit)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return listings, nil
}

// likeEscaper экранирует спецсимволы LIKE, чтобы поиск шел по буквальной подстроке
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// buildListQuery собирает SELECT с фильтрами; значения идут только через плейсхолдеры
func buildListQuery(req *model.ListRequest) (string, []any) {
	var where []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if s := strings.TrimSpace(req.Search); s != "" {
		ph := arg("%" + likeEscaper.Replace(s) + "%")
		where = append(where, fmt.Sprintf(`(title ILIKE %s ESCAPE '\' OR description ILIKE %s ESCAPE '\')`, ph, ph))
	}
	if req.MinPrice != nil {
		where = append(where, "price >= "+arg(*req.MinPrice))
	}
	if req.MaxPrice != nil {
		where = append(where, "price <= "+arg(*req.MaxPrice))
	}
	if req.MinYear != nil {
		where = append(where, "year >= "+arg(*req.MinYear))
	}
	if req.MaxYear != nil {
		where = append(where, "year <= "+arg(*req.MaxYear))
	}

	order, ok := model.SortColumns[req.Sort]
	if !ok {
		order = model.SortColumns[model.SortNewest]
	}

	var b strings.Builder
	b.WriteString("SELECT " + listingColumns + "\n\tFROM listings")
	if len(where) > 0 {
		b.WriteString("\n\tWHERE " + strings.Join(where, " AND "))
	}
	b.WriteString("\n\tORDER BY " + order + ", id")

	limit := arg(req.Limit)
	offset := arg((req.Page - 1) * req.Limit)
	b.WriteString(fmt.Sprintf("\n\tLIMIT %s\n\tOFFSET %s", limit, offset))

	return b.String(), args
}

func (p PostgresRepo) Update(ctx context.Context, l *model.Listing) error {
	query := `UPDATE listings SET title = $1, description = $2, price = $3, location = $4, year = $5, km_driven = $6,
	fuel_type = $7, transmission = $8, body_type = $9, color = $10, engine_capacity = $11, power_output = $12,
	torque = $13, seating_capacity = $14, fuel_consumption = $15, owner_count = $16, registration_state = $17,
	features = $18, image_urls = $19, updated_at = $20
	WHERE id = $21`

	res, err := p.DB.Master.ExecContext(ctx, query, l.Title, l.Description, l.Price, l.Location, l.Year, l.KmDriven,
		l.FuelType, l.Transmission, l.BodyType, l.Color, l.EngineCapacity, l.PowerOutput, l.Torque, l.SeatingCapacity,
		l.FuelConsumption, l.OwnerCount, l.RegistrationState, l.Features, l.ImageURLs, l.UpdatedAt, l.ID)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM listings
	WHERE id = $1`

	res, err := p.DB.Master.ExecContext(ctx, query, id)
	if err != nil {
		return err // 500
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrListingNotFound // 404
	}
	return nil
}

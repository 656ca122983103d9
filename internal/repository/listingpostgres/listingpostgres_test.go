package listingpostgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"
)

func newRepoWithMock(t *testing.T) (PostgresRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	pg := &dbpg.DB{Master: db}

	repo := PostgresRepo{DB: pg}

	return repo, mock
}

var columns = []string{
	"id", "title", "description", "price", "location", "year", "km_driven", "fuel_type", "transmission",
	"body_type", "color", "engine_capacity", "power_output", "torque", "seating_capacity", "fuel_consumption",
	"owner_count", "registration_state", "features", "image_urls", "created_at", "updated_at",
}

func listingRow(rows *sqlmock.Rows, id uuid.UUID, title string, urls string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id.String(), title, "desc", 15000, "Berlin", 2018, 90000, "Petrol", "Manual",
		"Sedan", "Black", "1.6L", "120 hp", "200 Nm", 5, "6.5 l/100km",
		1, "BE", []byte(`["ABS"]`), []byte(urls), now, now)
}

// CREATE - SUCCESS
func TestPostgresRepo_Create_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	l := &model.Listing{
		ID:        uuid.New(),
		Title:     "Golf",
		Price:     9000,
		Year:      2015,
		ImageURLs: model.StringSlice{"https://s3/b/cars/1.jpg"},
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	args := []driver.Value{l.ID, l.Title}
	for range len(columns) - 2 {
		args = append(args, sqlmock.AnyArg())
	}

	mock.ExpectExec(`INSERT INTO listings`).
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), l)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// GET - SUCCESS
func TestPostgresRepo_Get_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	id := uuid.New()
	rows := listingRow(sqlmock.NewRows(columns), id, "Golf", `["https://s3/b/cars/1.jpg","https://res.cloudinary.com/d/image/upload/x"]`)

	mock.ExpectQuery(`SELECT id, title`).
		WithArgs(id.String()).
		WillReturnRows(rows)

	l, err := repo.Get(context.Background(), id.String())
	require.NoError(t, err)
	require.Equal(t, id, l.ID)
	require.Equal(t, "Golf", l.Title)
	require.Equal(t, model.StringSlice{"ABS"}, l.Features)
	require.Len(t, l.ImageURLs, 2)
	require.NotNil(t, l.CreatedAt)
}

// GET - NOT FOUND
func TestPostgresRepo_Get_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT id, title`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrListingNotFound)
}

// GETLIST - SUCCESS
func TestPostgresRepo_GetList_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	minPrice, maxYear := int64(5000), 2020
	req := &model.ListRequest{
		Page:     2,
		Limit:    2,
		Search:   "golf",
		MinPrice: &minPrice,
		MaxYear:  &maxYear,
		Sort:     model.SortPriceAsc,
	}

	rows := sqlmock.NewRows(columns)
	rows = listingRow(rows, uuid.New(), "Golf", `[]`)
	rows = listingRow(rows, uuid.New(), "Golf GTI", `["https://s3/b/cars/2.jpg"]`)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE (title ILIKE $1 ESCAPE '\' OR description ILIKE $1 ESCAPE '\') AND price >= $2 AND year <= $3`)+
		`[\s\S]*`+regexp.QuoteMeta(`ORDER BY price ASC, id`)+`[\s\S]*LIMIT \$4[\s\S]*OFFSET \$5`).
		WithArgs("%golf%", int64(5000), 2020, 2, 2).
		WillReturnRows(rows)

	res, err := repo.GetList(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Empty(t, res[0].ImageURLs)
	require.Equal(t, "Golf GTI", res[1].Title)
}

func TestBuildListQuery(t *testing.T) {
	tests := []struct {
		name      string
		req       *model.ListRequest
		wantParts []string
		wantArgs  []any
	}{
		{
			name:      "no filters, default order",
			req:       &model.ListRequest{Page: 1, Limit: 30},
			wantParts: []string{"FROM listings\n\tORDER BY created_at DESC, id", "LIMIT $1", "OFFSET $2"},
			wantArgs:  []any{30, 0},
		},
		{
			name:      "unknown sort falls back to newest",
			req:       &model.ListRequest{Page: 3, Limit: 10, Sort: "price; DROP TABLE listings"},
			wantParts: []string{"ORDER BY created_at DESC, id"},
			wantArgs:  []any{10, 20},
		},
		{
			name:      "search wildcards are literal",
			req:       &model.ListRequest{Page: 1, Limit: 5, Search: `50%_off\`},
			wantParts: []string{`WHERE (title ILIKE $1 ESCAPE '\' OR description ILIKE $1 ESCAPE '\')`},
			wantArgs:  []any{`%50\%\_off\\%`, 5, 0},
		},
		{
			name:      "single underscore",
			req:       &model.ListRequest{Page: 1, Limit: 5, Search: "_"},
			wantParts: []string{"ILIKE $1 ESCAPE"},
			wantArgs:  []any{`%\_%`, 5, 0},
		},
		{
			name: "year range",
			req: &model.ListRequest{Page: 1, Limit: 5, MinYear: ptr(2010), MaxYear: ptr(2015),
				Sort: model.SortKmAsc},
			wantParts: []string{"WHERE year >= $1 AND year <= $2", "ORDER BY km_driven ASC, id", "LIMIT $3"},
			wantArgs:  []any{2010, 2015, 5, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args := buildListQuery(tt.req)
			for _, part := range tt.wantParts {
				require.Contains(t, q, part)
			}
			require.Equal(t, tt.wantArgs, args)
		})
	}
}

// UPDATE - SUCCESS / NOT FOUND
func TestPostgresRepo_Update(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		dbErr    error
		wantErr  error
	}{
		{"ok", 1, nil, nil},
		{"not found", 0, nil, model.ErrListingNotFound},
		{"db error", 0, errors.New("db down"), errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			l := &model.Listing{ID: uuid.New(), Title: "Polo"}

			exp := mock.ExpectExec(`UPDATE listings SET title = \$1`)
			if tt.dbErr != nil {
				exp.WillReturnError(tt.dbErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			err := repo.Update(context.Background(), l)
			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
			case errors.Is(tt.wantErr, model.ErrListingNotFound):
				require.ErrorIs(t, err, model.ErrListingNotFound)
			default:
				require.Error(t, err)
			}
		})
	}
}

// DELETE - SUCCESS
func TestPostgresRepo_Delete_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM listings`).
		WithArgs("id").
		WillReturnResult(sqlmock.NewResult(0, 1)) // 1 row affected

	err := repo.Delete(context.Background(), "id")
	require.NoError(t, err)
}

// DELETE - NOT FOUND
func TestPostgresRepo_Delete_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM listings`).
		WithArgs("id").
		WillReturnResult(sqlmock.NewResult(0, 0)) // 0 rows affected

	err := repo.Delete(context.Background(), "id")
	require.ErrorIs(t, err, model.ErrListingNotFound)
}

// DELETE - DBERROR
func TestPostgresRepo_Delete_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM listings`).
		WithArgs("id").
		WillReturnError(errors.New("db down"))

	err := repo.Delete(context.Background(), "id")
	require.Error(t, err)
}

func ptr[T any](v T) *T { return &v }

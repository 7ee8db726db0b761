package store

import (
	"context"
	"errors"
	"time"

	"NovaRamp/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrStatusChanged is returned by a guarded UpdateOrder when the stored
	// status no longer matches OrderPatch.ExpectStatus.
	ErrStatusChanged = errors.New("order status changed concurrently")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate")
)

// Repository is the persistence surface the services depend on. Store is the
// postgres implementation; memstore.Store is the in-process one.
type Repository interface {
	UpsertUser(ctx context.Context, user *models.User) (*models.User, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*models.Order, error)
	UpdateOrder(ctx context.Context, userID, orderID string, patch models.OrderPatch) (*models.Order, error)
	MarkExpired(ctx context.Context, cutoff time.Time) ([]ExpiredOrder, error)

	CreateDeposit(ctx context.Context, deposit *models.MakerDeposit) error
	GetDeposit(ctx context.Context, depositID string) (*models.MakerDeposit, error)
	FindEligibleDeposits(ctx context.Context, q models.DepositQuery) ([]*models.MakerDeposit, error)
	ActivePayeeExists(ctx context.Context, normalizedPayeeID, provider string) (bool, error)
	ListDeposits(ctx context.Context, userID string) ([]*models.MakerDeposit, error)
	DeactivateDeposit(ctx context.Context, userID, depositID string) error
}

// ExpiredOrder is an order moved to expired by the sweeper, with the status it left.
type ExpiredOrder struct {
	From  models.OrderStatus
	Order *models.Order
}

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	DB DB
}

func New(db DB) *Store {
	return &Store{DB: db}
}

var _ Repository = (*Store)(nil)

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

const userColumns = `id, auth_subject, primary_address, created_at, updated_at`

// UpsertUser inserts the user or, when the auth subject is already known,
// refreshes its primary address (an empty address keeps the stored one).
func (s *Store) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	row := s.DB.QueryRow(ctx, `
		INSERT INTO users (id, auth_subject, primary_address, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (auth_subject) DO UPDATE SET
			primary_address = CASE WHEN EXCLUDED.primary_address <> '' THEN EXCLUDED.primary_address ELSE users.primary_address END,
			updated_at = now()
		RETURNING `+userColumns,
		user.ID, user.AuthSubject, user.PrimaryAddress,
	)
	var u models.User
	if err := row.Scan(&u.ID, &u.AuthSubject, &u.PrimaryAddress, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

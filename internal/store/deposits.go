package store

import (
	"context"
	"errors"
	"strings"

	"NovaRamp/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const depositColumns = `deposit_id, user_id, raw_payee_id, normalized_payee_id,
	hashed_onchain_id, provider, currency, min_amount, max_amount,
	conversion_rate, fee_percentage, is_active, created_at, updated_at`

func scanDeposit(row scanner) (*models.MakerDeposit, error) {
	var d models.MakerDeposit
	err := row.Scan(
		&d.DepositID,
		&d.UserID,
		&d.RawPayeeID,
		&d.NormalizedPayeeID,
		&d.HashedOnchainID,
		&d.Provider,
		&d.Currency,
		&d.MinAmount,
		&d.MaxAmount,
		&d.ConversionRate,
		&d.FeePercentage,
		&d.IsActive,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDeposit inserts d. A second active deposit for the same payee and
// provider is rejected with ErrDuplicate.
func (s *Store) CreateDeposit(ctx context.Context, d *models.MakerDeposit) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO maker_deposits (
			deposit_id, user_id, raw_payee_id, normalized_payee_id,
			hashed_onchain_id, provider, currency, min_amount, max_amount,
			conversion_rate, fee_percentage, is_active, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		d.DepositID,
		d.UserID,
		d.RawPayeeID,
		d.NormalizedPayeeID,
		d.HashedOnchainID,
		d.Provider,
		d.Currency,
		d.MinAmount,
		d.MaxAmount,
		d.ConversionRate,
		d.FeePercentage,
		d.IsActive,
		d.CreatedAt,
		d.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

func (s *Store) GetDeposit(ctx context.Context, depositID string) (*models.MakerDeposit, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+depositColumns+` FROM maker_deposits WHERE deposit_id=$1`, depositID)
	d, err := scanDeposit(row)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

func (s *Store) FindEligibleDeposits(ctx context.Context, q models.DepositQuery) ([]*models.MakerDeposit, error) {
	return s.listDeposits(ctx, `
		SELECT `+depositColumns+`
		FROM maker_deposits
		WHERE is_active
			AND upper(currency) = upper($1)
			AND ($2 = '' OR provider = $2)
			AND min_amount <= $3 AND max_amount >= $3
	`, q.Currency, q.Provider, q.Amount)
}

func (s *Store) ActivePayeeExists(ctx context.Context, normalizedPayeeID, provider string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM maker_deposits
			WHERE normalized_payee_id=$1 AND provider=$2 AND is_active
		)
	`, normalizedPayeeID, provider).Scan(&exists)
	return exists, err
}

// ListDeposits returns the user's active deposits, newest first.
func (s *Store) ListDeposits(ctx context.Context, userID string) ([]*models.MakerDeposit, error) {
	return s.listDeposits(ctx, `
		SELECT `+depositColumns+`
		FROM maker_deposits
		WHERE user_id=$1 AND is_active
		ORDER BY created_at DESC
	`, userID)
}

func (s *Store) DeactivateDeposit(ctx context.Context, userID, depositID string) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE maker_deposits SET is_active=false, updated_at=now()
		WHERE deposit_id=$1 AND user_id=$2 AND is_active
	`, depositID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) listDeposits(ctx context.Context, query string, args ...any) ([]*models.MakerDeposit, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deposits := []*models.MakerDeposit{}
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

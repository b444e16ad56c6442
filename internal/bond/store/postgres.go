package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"bonds/internal/bond/models"
	id "bonds/pkg/domain"
	"bonds/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists bonds in PostgreSQL. Listing order follows the
// insertion sequence.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed bond store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, bond *models.Bond) error {
	query := `
		INSERT INTO bonds (id, owner_id, isin, size, currency, maturity, lei, legal_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, query,
		uuid.UUID(bond.ID),
		uuid.UUID(bond.Owner),
		bond.ISIN,
		bond.Size,
		bond.Currency,
		bond.Maturity,
		bond.LEI,
		bond.LegalName,
		bond.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("create bond: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create bond: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, owner id.AccountID, filter models.Filter, page models.PageRequest) ([]*models.Bond, error) {
	where, args := whereClause(owner, filter)
	query := `
		SELECT id, owner_id, isin, size, currency, maturity, lei, legal_name, created_at
		FROM bonds
		WHERE ` + where + `
		ORDER BY seq`
	if page.Size > 0 {
		args = append(args, page.Size, page.Offset())
		query += " LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bonds: %w", err)
	}
	bonds, err := pgx.CollectRows(rows, scanBond)
	if err != nil {
		return nil, fmt.Errorf("scan bonds: %w", err)
	}
	if bonds == nil {
		bonds = []*models.Bond{}
	}
	return bonds, nil
}

func (s *PostgresStore) Count(ctx context.Context, owner id.AccountID, filter models.Filter) (int, error) {
	where, args := whereClause(owner, filter)
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM bonds WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bonds: %w", err)
	}
	return n, nil
}

// whereClause always scopes by owner and then adds one equality per set
// filter field. Column names come from a fixed list and are quoted.
func whereClause(owner id.AccountID, filter models.Filter) (string, []any) {
	conds := []string{"owner_id = $1"}
	args := []any{uuid.UUID(owner)}

	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, pq.QuoteIdentifier(column)+" = $"+strconv.Itoa(len(args)))
	}
	if filter.ISIN != nil {
		add(models.FilterISIN, *filter.ISIN)
	}
	if filter.Size != nil {
		add(models.FilterSize, *filter.Size)
	}
	if filter.Currency != nil {
		add(models.FilterCurrency, *filter.Currency)
	}
	if filter.Maturity != nil {
		add(models.FilterMaturity, *filter.Maturity)
	}
	if filter.LEI != nil {
		add(models.FilterLEI, *filter.LEI)
	}
	if filter.LegalName != nil {
		add(models.FilterLegalName, *filter.LegalName)
	}
	return strings.Join(conds, " AND "), args
}

func scanBond(row pgx.CollectableRow) (*models.Bond, error) {
	var (
		bondID, ownerID uuid.UUID
		b               models.Bond
		maturity        time.Time
	)
	if err := row.Scan(&bondID, &ownerID, &b.ISIN, &b.Size, &b.Currency, &maturity, &b.LEI, &b.LegalName, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.ID = id.BondID(bondID)
	b.Owner = id.AccountID(ownerID)
	b.Maturity = time.Date(maturity.Year(), maturity.Month(), maturity.Day(), 0, 0, 0, 0, time.UTC)
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}

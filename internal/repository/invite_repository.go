package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/invite-registry/internal/invite"
	"github.com/fairyhunter13/invite-registry/internal/model"
	"github.com/fairyhunter13/invite-registry/internal/service"
	"github.com/fairyhunter13/invite-registry/pkg/database"
)

//go:embed schema.sql
var schemaSQL string

const inviteColumns = `code, type, created_at, expires_at, max_uses, current_uses, used_at, used_by, description`

// PoolInterface defines the database operations needed by InviteRepository.
// This allows for easier testing with mocks.
type PoolInterface interface {
	database.TxQuerier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InviteRepository provides data access for invite codes using pgx.
type InviteRepository struct {
	pool PoolInterface
}

// NewInviteRepository creates a new InviteRepository with the given pool.
func NewInviteRepository(pool *pgxpool.Pool) *InviteRepository {
	return &InviteRepository{pool: pool}
}

// NewInviteRepositoryWithPool creates a new InviteRepository with a custom pool interface.
// This is primarily used for testing.
func NewInviteRepositoryWithPool(pool PoolInterface) *InviteRepository {
	return &InviteRepository{pool: pool}
}

// Migrate creates the invite_codes table and its index when missing.
func Migrate(ctx context.Context, db database.TxQuerier) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply invite schema: %w", err)
	}
	return nil
}

// InsertIfAbsent inserts entry unless its code is already taken.
// Returns false, nil when the code exists.
func (r *InviteRepository) InsertIfAbsent(ctx context.Context, entry model.InviteCode) (bool, error) {
	query := `INSERT INTO invite_codes (code, type, created_at, expires_at, max_uses, current_uses, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		entry.Code,
		string(entry.Type),
		entry.CreatedAt,
		entry.ExpiresAt,
		entry.MaxUses,
		entry.CurrentUses,
		entry.Description,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return false, fmt.Errorf("%w: violates %s", service.ErrInvalidRequest, pgErr.ConstraintName)
		}
		return false, fmt.Errorf("insert invite code %s: %w", entry.Code, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByCode retrieves an invite code by exact match.
// Returns nil, nil if the code is not found (service layer handles this).
func (r *InviteRepository) GetByCode(ctx context.Context, code string) (*model.InviteCode, error) {
	query := `SELECT ` + inviteColumns + ` FROM invite_codes WHERE code = $1`

	entry, err := scanInvite(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invite code %s: %w", code, err)
	}
	return entry, nil
}

// GetCodeForUpdate retrieves an invite code with a row lock (SELECT FOR UPDATE).
// This locks the row until the transaction completes.
// Returns nil, nil if the code is not found.
func (r *InviteRepository) GetCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.InviteCode, error) {
	query := `SELECT ` + inviteColumns + ` FROM invite_codes WHERE code = $1 FOR UPDATE`

	entry, err := scanInvite(tx.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invite code for update %s: %w", code, err)
	}
	return entry, nil
}

// IncrementUses records one redemption. The first redemption also stamps
// used_at and used_by. Must be called within a transaction after locking the row.
func (r *InviteRepository) IncrementUses(ctx context.Context, tx database.TxQuerier, code, redeemerID string, now time.Time) (*model.InviteCode, error) {
	query := `UPDATE invite_codes SET
			used_at = CASE WHEN current_uses = 0 THEN $2 ELSE used_at END,
			used_by = CASE WHEN current_uses = 0 THEN $3 ELSE used_by END,
			current_uses = current_uses + 1
		WHERE code = $1
		RETURNING ` + inviteColumns

	entry, err := scanInvite(tx.QueryRow(ctx, query, code, now, redeemerID))
	if err != nil {
		return nil, fmt.Errorf("increment uses for %s: %w", code, err)
	}
	return entry, nil
}

// Consume atomically validates and redeems one use of code.
// The row stays locked from the check until the commit, so concurrent
// redeemers of the same code are serialized.
func (r *InviteRepository) Consume(ctx context.Context, code, redeemerID string, now time.Time) (*model.InviteCode, invite.Reason, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, invite.ReasonNone, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Lock the invite row (SELECT FOR UPDATE)
	entry, err := r.GetCodeForUpdate(ctx, tx, code)
	if err != nil {
		return nil, invite.ReasonNone, err
	}
	if entry == nil {
		return nil, invite.ReasonNotFound, nil
	}

	// 2. Check expiry, then usage
	if reason := invite.Check(*entry, now); reason != invite.ReasonNone {
		return entry, reason, nil
	}

	// 3. Increment and stamp first use
	updated, err := r.IncrementUses(ctx, tx, code, redeemerID, now)
	if err != nil {
		return nil, invite.ReasonNone, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, invite.ReasonNone, fmt.Errorf("commit redemption of %s: %w", code, err)
	}
	return updated, invite.ReasonNone, nil
}

// List retrieves all invite codes ordered by creation time, then code.
// On success, returns an empty slice (not nil) when no codes exist.
func (r *InviteRepository) List(ctx context.Context) ([]model.InviteCode, error) {
	query := `SELECT ` + inviteColumns + ` FROM invite_codes ORDER BY created_at, code`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list invite codes: %w", err)
	}
	defer rows.Close()

	entries := []model.InviteCode{}
	for rows.Next() {
		entry, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite code: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invite rows: %w", err)
	}
	return entries, nil
}

func scanInvite(row pgx.Row) (*model.InviteCode, error) {
	var entry model.InviteCode
	var inviteType string
	err := row.Scan(
		&entry.Code,
		&inviteType,
		&entry.CreatedAt,
		&entry.ExpiresAt,
		&entry.MaxUses,
		&entry.CurrentUses,
		&entry.UsedAt,
		&entry.UsedBy,
		&entry.Description,
	)
	if err != nil {
		return nil, err
	}
	entry.Type = model.InviteType(inviteType)
	return &entry, nil
}

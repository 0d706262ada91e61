package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/fairyhunter13/invite-registry/internal/invite"
	"github.com/fairyhunter13/invite-registry/internal/model"
)

// MemoryRepository serves an in-process invite.Catalog through the same
// contract as the durable stores. Contents are lost on restart.
type MemoryRepository struct {
	catalog *invite.Catalog
}

// NewMemoryRepository wraps catalog.
func NewMemoryRepository(catalog *invite.Catalog) *MemoryRepository {
	return &MemoryRepository{catalog: catalog}
}

// InsertIfAbsent adds entry unless its code is already present.
func (r *MemoryRepository) InsertIfAbsent(_ context.Context, entry model.InviteCode) (bool, error) {
	err := r.catalog.Add(entry)
	if errors.Is(err, invite.ErrDuplicateCode) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByCode returns the entry for code, or nil if it does not exist.
func (r *MemoryRepository) GetByCode(_ context.Context, code string) (*model.InviteCode, error) {
	entry, ok := r.catalog.Get(code)
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Consume records one use of code at now when it is still redeemable.
func (r *MemoryRepository) Consume(_ context.Context, code, redeemerID string, now time.Time) (*model.InviteCode, invite.Reason, error) {
	result := r.catalog.TryConsumeAt(code, redeemerID, now)
	return result.Entry, result.Reason, nil
}

// List returns every entry ordered by creation time, then code.
func (r *MemoryRepository) List(_ context.Context) ([]model.InviteCode, error) {
	entries := r.catalog.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].Code < entries[j].Code
	})
	return entries, nil
}

// Ping always succeeds; the catalog lives in this process.
func (r *MemoryRepository) Ping(_ context.Context) error {
	return nil
}

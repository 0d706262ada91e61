package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fairyhunter13/invite-registry/internal/invite"
	"github.com/fairyhunter13/invite-registry/internal/model"
)

var invitesBucket = []byte("invite_codes")

// BoltRepository stores invite codes as JSON records in a bbolt file.
// bbolt runs one writer at a time, so Consume is atomic per code.
type BoltRepository struct {
	db *bolt.DB
}

// NewBoltRepository opens (or creates) the bbolt file at path.
func NewBoltRepository(path string) (*BoltRepository, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db at %s: %w", path, err)
	}

	// Reason: bucket must exist before any read/write operations
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(invitesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating invite_codes bucket: %w", err)
	}

	return &BoltRepository{db: db}, nil
}

// InsertIfAbsent stores entry unless its code is already taken.
func (r *BoltRepository) InsertIfAbsent(_ context.Context, entry model.InviteCode) (bool, error) {
	inserted := false
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(invitesBucket)
		if b.Get([]byte(entry.Code)) != nil {
			return nil
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshaling invite %s: %w", entry.Code, err)
		}
		if err := b.Put([]byte(entry.Code), data); err != nil {
			return fmt.Errorf("writing invite %s: %w", entry.Code, err)
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// GetByCode returns the entry for code, or nil, nil when absent.
func (r *BoltRepository) GetByCode(_ context.Context, code string) (*model.InviteCode, error) {
	var entry *model.InviteCode
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(invitesBucket).Get([]byte(code))
		if data == nil {
			return nil
		}
		var e model.InviteCode
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("unmarshaling invite %s: %w", code, err)
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Consume validates and redeems one use of code inside a single write transaction.
func (r *BoltRepository) Consume(_ context.Context, code, redeemerID string, now time.Time) (*model.InviteCode, invite.Reason, error) {
	var entry *model.InviteCode
	reason := invite.ReasonNone

	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(invitesBucket)
		data := b.Get([]byte(code))
		if data == nil {
			reason = invite.ReasonNotFound
			return nil
		}

		var e model.InviteCode
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("unmarshaling invite %s: %w", code, err)
		}
		entry = &e

		if reason = invite.Check(e, now); reason != invite.ReasonNone {
			return nil
		}

		invite.Stamp(&e, redeemerID, now)
		updated, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshaling invite %s: %w", code, err)
		}
		if err := b.Put([]byte(code), updated); err != nil {
			return fmt.Errorf("writing redemption for invite %s: %w", code, err)
		}
		return nil
	})
	if err != nil {
		return nil, invite.ReasonNone, err
	}
	return entry, reason, nil
}

// List returns all entries ordered by creation time, then code.
func (r *BoltRepository) List(_ context.Context) ([]model.InviteCode, error) {
	entries := []model.InviteCode{}

	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(invitesBucket).ForEach(func(k, v []byte) error {
			var e model.InviteCode
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("unmarshaling invite %s: %w", string(k), err)
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].Code < entries[j].Code
	})
	return entries, nil
}

// Ping reports whether the bbolt file is open and holds the invite bucket.
func (r *BoltRepository) Ping(_ context.Context) error {
	return r.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(invitesBucket) == nil {
			return errors.New("invite_codes bucket missing")
		}
		return nil
	})
}

// Close releases the bbolt file lock.
func (r *BoltRepository) Close() error {
	return r.db.Close()
}

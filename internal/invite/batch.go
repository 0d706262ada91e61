package invite

import (
	"errors"
	"fmt"
	"time"

	"github.com/fairyhunter13/invite-registry/internal/model"
)

var (
	ErrInvalidCount   = errors.New("batch count must not be negative")
	ErrInvalidExpiry  = errors.New("expiry days must not be negative")
	ErrInvalidMaxUses = errors.New("max uses must be at least 1")
	ErrInvalidType    = errors.New("unknown invite type")
)

// BatchSpec describes a batch of codes sharing type, usage limit and expiry.
type BatchSpec struct {
	Count       int
	Type        model.InviteType
	ExpiryDays  int
	MaxUses     int
	CodeLength  int    // 0 means DefaultCodeLength
	Description string // empty means a generated description
}

func (s BatchSpec) withDefaults() BatchSpec {
	if s.Type == "" {
		s.Type = model.InviteTypeClient
	}
	if s.CodeLength == 0 {
		s.CodeLength = DefaultCodeLength
	}
	if s.Description == "" {
		s.Description = fmt.Sprintf("batch generated %s invite code", s.Type)
	}
	return s
}

// Validate rejects specs that violate the batch contract.
func (s BatchSpec) Validate() error {
	s = s.withDefaults()
	switch {
	case s.Count < 0:
		return ErrInvalidCount
	case s.ExpiryDays < 0:
		return ErrInvalidExpiry
	case s.MaxUses < 1:
		return ErrInvalidMaxUses
	case !s.Type.Valid():
		return fmt.Errorf("%w: %q", ErrInvalidType, s.Type)
	case s.CodeLength < 0 || s.CodeLength > MaxCodeLength:
		return ErrInvalidLength
	}
	return nil
}

// ExpiresAt returns the shared expiry of a batch created at now.
func (s BatchSpec) ExpiresAt(now time.Time) time.Time {
	return now.Add(time.Duration(s.ExpiryDays) * 24 * time.Hour)
}

// NewEntry builds a fresh, unused entry for code following spec.
func NewEntry(code string, spec BatchSpec, now time.Time) model.InviteCode {
	spec = spec.withDefaults()
	return model.InviteCode{
		Code:        code,
		Type:        spec.Type,
		CreatedAt:   now,
		ExpiresAt:   spec.ExpiresAt(now),
		MaxUses:     spec.MaxUses,
		CurrentUses: 0,
		Description: spec.Description,
	}
}

// GenerateBatch creates spec.Count new codes in generation order.
// Codes are independent draws; duplicates are not filtered.
func GenerateBatch(spec BatchSpec, now time.Time) ([]model.InviteCode, error) {
	return defaultGenerator.Batch(spec, now)
}

// Batch creates spec.Count new codes in generation order.
func (g *Generator) Batch(spec BatchSpec, now time.Time) ([]model.InviteCode, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	spec = spec.withDefaults()

	codes := make([]model.InviteCode, 0, spec.Count)
	for i := 0; i < spec.Count; i++ {
		code, err := g.Code(spec.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("generate code %d of %d: %w", i+1, spec.Count, err)
		}
		codes = append(codes, NewEntry(code, spec, now))
	}
	return codes, nil
}

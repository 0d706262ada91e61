package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/invite-registry/internal/invite"
	"github.com/fairyhunter13/invite-registry/internal/model"
)

// maxInsertAttempts bounds how many fresh codes are drawn when inserts collide.
const maxInsertAttempts = 16

// Registry is the storage contract behind InviteService.
type Registry interface {
	// InsertIfAbsent stores entry and reports false when its code is taken.
	InsertIfAbsent(ctx context.Context, entry model.InviteCode) (bool, error)
	// GetByCode returns nil, nil when the code does not exist.
	GetByCode(ctx context.Context, code string) (*model.InviteCode, error)
	// Consume validates and redeems one use atomically.
	Consume(ctx context.Context, code, redeemerID string, now time.Time) (*model.InviteCode, invite.Reason, error)
	List(ctx context.Context) ([]model.InviteCode, error)
}

// Defaults holds the values applied to batch requests that omit them.
type Defaults struct {
	CodeLength int
	ExpiryDays int
	MaxUses    int
	MaxBatch   int
}

// InviteService provides business logic for invite code operations.
type InviteService struct {
	registry Registry
	gen      *invite.Generator
	now      func() time.Time
	defaults Defaults
}

// NewInviteService creates a new InviteService backed by registry.
func NewInviteService(registry Registry, defaults Defaults) *InviteService {
	return NewInviteServiceWithClock(registry, defaults, nil, nil)
}

// NewInviteServiceWithClock creates an InviteService with a custom generator and clock.
// Primarily used for testing.
func NewInviteServiceWithClock(registry Registry, defaults Defaults, gen *invite.Generator, now func() time.Time) *InviteService {
	if gen == nil {
		gen = invite.NewGenerator(nil)
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &InviteService{
		registry: registry,
		gen:      gen,
		now:      now,
		defaults: defaults,
	}
}

// IssueBatch generates and stores a batch of codes described by req.
// Every code is retried against the registry until it is unused.
// Returns ErrInvalidRequest or ErrBatchTooLarge for unacceptable requests.
func (s *InviteService) IssueBatch(ctx context.Context, req *model.CreateBatchRequest) ([]model.InviteResponse, error) {
	// Handlers validate Count, but the service is also called directly
	if req == nil || req.Count == nil {
		return nil, ErrInvalidRequest
	}
	if s.defaults.MaxBatch > 0 && *req.Count > s.defaults.MaxBatch {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, *req.Count, s.defaults.MaxBatch)
	}

	spec := invite.BatchSpec{
		Count:       *req.Count,
		Type:        model.InviteType(req.Type),
		ExpiryDays:  s.defaults.ExpiryDays,
		MaxUses:     s.defaults.MaxUses,
		CodeLength:  s.defaults.CodeLength,
		Description: req.Description,
	}
	if req.ExpiryDays != nil {
		spec.ExpiryDays = *req.ExpiryDays
	}
	if req.MaxUses != nil {
		spec.MaxUses = *req.MaxUses
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	now := s.now()
	issued := make([]model.InviteResponse, 0, spec.Count)
	for i := 0; i < spec.Count; i++ {
		entry, err := s.issueOne(ctx, spec, now)
		if err != nil {
			return nil, fmt.Errorf("issue code %d of %d: %w", i+1, spec.Count, err)
		}
		issued = append(issued, toResponse(*entry, now))
	}
	return issued, nil
}

func (s *InviteService) issueOne(ctx context.Context, spec invite.BatchSpec, now time.Time) (*model.InviteCode, error) {
	length := spec.CodeLength
	if length == 0 {
		length = invite.DefaultCodeLength
	}
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		code, err := s.gen.Code(length)
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		entry := invite.NewEntry(code, spec, now)
		inserted, err := s.registry.InsertIfAbsent(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("insert code: %w", err)
		}
		if inserted {
			return &entry, nil
		}
		log.Debug().Int("attempt", attempt).Msg("generated invite code collided, retrying")
	}
	return nil, invite.ErrCodeSpaceExhausted
}

// Get retrieves an invite code with its live status.
// Returns ErrCodeNotFound if the code doesn't exist.
func (s *InviteService) Get(ctx context.Context, code string) (*model.InviteResponse, error) {
	entry, err := s.registry.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get invite code: %w", err)
	}
	if entry == nil {
		return nil, ErrCodeNotFound
	}
	resp := toResponse(*entry, s.now())
	return &resp, nil
}

// Validate reports whether code can be redeemed right now.
// The three expected outcomes are part of the response, never errors.
func (s *InviteService) Validate(ctx context.Context, code string) (*model.ValidationResponse, error) {
	entry, err := s.registry.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get invite code: %w", err)
	}

	now := s.now()
	result := invite.Evaluate(entry, now)
	resp := &model.ValidationResponse{
		Valid:  result.Valid,
		Reason: string(result.Reason),
	}
	if result.Entry != nil {
		view := toResponse(*result.Entry, now)
		resp.Invite = &view
	}
	return resp, nil
}

// Redeem atomically consumes one use of code for redeemerID.
// Returns:
//   - ErrCodeNotFound if the code doesn't exist
//   - ErrCodeExpired if the code is at or past its expiry
//   - ErrUsageLimitReached if the code has no uses left
func (s *InviteService) Redeem(ctx context.Context, code, redeemerID string) (*model.InviteResponse, error) {
	now := s.now()
	entry, reason, err := s.registry.Consume(ctx, code, redeemerID, now)
	if err != nil {
		return nil, fmt.Errorf("consume invite code: %w", err)
	}

	switch reason {
	case invite.ReasonNone:
	case invite.ReasonNotFound:
		return nil, ErrCodeNotFound
	case invite.ReasonExpired:
		return nil, ErrCodeExpired
	case invite.ReasonUsageLimitHit:
		return nil, ErrUsageLimitReached
	default:
		return nil, fmt.Errorf("unexpected redemption outcome %q", reason)
	}

	resp := toResponse(*entry, now)
	return &resp, nil
}

// List returns every invite code with its live status.
func (s *InviteService) List(ctx context.Context) ([]model.InviteResponse, error) {
	entries, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invite codes: %w", err)
	}
	now := s.now()
	out := make([]model.InviteResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toResponse(e, now))
	}
	return out, nil
}

// Summary renders the display text for a single code.
func (s *InviteService) Summary(ctx context.Context, code string) (string, error) {
	entry, err := s.registry.GetByCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("get invite code: %w", err)
	}
	if entry == nil {
		return "", ErrCodeNotFound
	}
	return invite.FormatSummary(*entry, s.now()), nil
}

// Report renders the full catalog report.
func (s *InviteService) Report(ctx context.Context) (string, error) {
	entries, err := s.registry.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list invite codes: %w", err)
	}
	return invite.ExportReport(entries, s.now()), nil
}

// Seed stores the seed codes that are not present yet and returns how many were added.
// Existing codes, including redeemed seed codes, are left untouched.
func (s *InviteService) Seed(ctx context.Context) (int, error) {
	inserted := 0
	for _, entry := range invite.Seed(s.now()) {
		ok, err := s.registry.InsertIfAbsent(ctx, entry)
		if err != nil {
			return inserted, fmt.Errorf("seed invite code %s: %w", entry.Code, err)
		}
		if !ok {
			log.Debug().Str("code", entry.Code).Msg("seed: invite code already exists, skipping")
			continue
		}
		inserted++
	}
	log.Info().Int("inserted", inserted).Msg("seeded invite codes")
	return inserted, nil
}

func toResponse(entry model.InviteCode, now time.Time) model.InviteResponse {
	return model.InviteResponse{
		InviteCode: entry,
		Status:     string(invite.StatusOf(entry, now)),
	}
}

package invite

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fairyhunter13/invite-registry/internal/model"
)

// maxIssueAttempts bounds how many draws Issue makes per code before giving up.
const maxIssueAttempts = 32

var (
	// ErrDuplicateCode is returned when adding a code the catalog already holds.
	ErrDuplicateCode = errors.New("invite code already exists")

	// ErrCodeSpaceExhausted is returned when no fresh code could be drawn.
	ErrCodeSpaceExhausted = errors.New("could not generate an unused invite code")
)

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock sets the time source used for expiry checks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

// WithGenerator sets the code generator used by Issue.
func WithGenerator(g *Generator) Option {
	return func(c *Catalog) {
		if g != nil {
			c.gen = g
		}
	}
}

// Catalog is an in-memory collection of invite codes and their usage state.
// It is safe for concurrent use. Redemption is a single critical section, so
// a code is never redeemed more than MaxUses times.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]*model.InviteCode
	order   []string
	now     func() time.Time
	gen     *Generator
}

// NewCatalog creates an empty catalog.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		entries: make(map[string]*model.InviteCode),
		now:     func() time.Time { return time.Now().UTC() },
		gen:     defaultGenerator,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewSeededCatalog creates a catalog holding the seed codes.
func NewSeededCatalog(opts ...Option) *Catalog {
	c := NewCatalog(opts...)
	// Seed codes are distinct, Add cannot fail on an empty catalog.
	_ = c.Add(Seed(c.now())...)
	return c
}

// Now returns the catalog's current time.
func (c *Catalog) Now() time.Time {
	return c.now()
}

// Add inserts entries. Either all of them are added or, when any code is
// already present (or repeated within entries), none are.
func (c *Catalog) Add(entries ...model.InviteCode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := c.entries[e.Code]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, e.Code)
		}
		if _, ok := seen[e.Code]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, e.Code)
		}
		seen[e.Code] = struct{}{}
	}
	for _, e := range entries {
		c.insertLocked(e)
	}
	return nil
}

func (c *Catalog) insertLocked(e model.InviteCode) {
	entry := clone(e)
	c.entries[e.Code] = &entry
	c.order = append(c.order, e.Code)
}

// Len returns the number of codes in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Get returns a snapshot of the entry for code.
func (c *Catalog) Get(code string) (model.InviteCode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[code]
	if !ok {
		return model.InviteCode{}, false
	}
	return clone(*e), true
}

// Entries returns snapshots of all entries in insertion order.
func (c *Catalog) Entries() []model.InviteCode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.InviteCode, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, clone(*c.entries[code]))
	}
	return out
}

// Validate looks code up by exact match and reports whether it can be redeemed now.
// It has no side effects.
func (c *Catalog) Validate(code string) ValidationResult {
	return c.ValidateAt(code, c.now())
}

// ValidateAt is Validate evaluated at the given instant.
func (c *Catalog) ValidateAt(code string, now time.Time) ValidationResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[code]
	if !ok {
		return Evaluate(nil, now)
	}
	snapshot := clone(*e)
	return Evaluate(&snapshot, now)
}

// Redeem consumes one use of code for redeemerID. It returns false, without
// changing anything, when the code is missing, expired or exhausted.
func (c *Catalog) Redeem(code, redeemerID string) bool {
	return c.TryConsume(code, redeemerID).Valid
}

// TryConsume validates and, when valid, consumes one use of code in a single
// critical section. The returned entry reflects the state after the call.
func (c *Catalog) TryConsume(code, redeemerID string) ValidationResult {
	return c.TryConsumeAt(code, redeemerID, c.now())
}

// TryConsumeAt is TryConsume evaluated at the given instant.
func (c *Catalog) TryConsumeAt(code, redeemerID string, now time.Time) ValidationResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[code]
	if !ok {
		return Evaluate(nil, now)
	}
	if reason := Check(*e, now); reason != ReasonNone {
		snapshot := clone(*e)
		return ValidationResult{Reason: reason, Entry: &snapshot}
	}

	Stamp(e, redeemerID, now)
	snapshot := clone(*e)
	return ValidationResult{Valid: true, Entry: &snapshot}
}

// Issue generates spec.Count codes that are unique within the catalog,
// adds them and returns them in generation order. On error no code is added.
func (c *Catalog) Issue(spec BatchSpec) ([]model.InviteCode, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	spec = spec.withDefaults()
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	pending := make(map[string]struct{}, spec.Count)
	issued := make([]model.InviteCode, 0, spec.Count)
	for i := 0; i < spec.Count; i++ {
		code, err := c.uniqueCodeLocked(spec.CodeLength, pending)
		if err != nil {
			return nil, err
		}
		pending[code] = struct{}{}
		issued = append(issued, NewEntry(code, spec, now))
	}
	for _, e := range issued {
		c.insertLocked(e)
	}
	return issued, nil
}

// uniqueCodeLocked draws a code that is neither in the catalog nor in pending.
func (c *Catalog) uniqueCodeLocked(length int, pending map[string]struct{}) (string, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := c.gen.Code(length)
		if err != nil {
			return "", err
		}
		if _, taken := c.entries[code]; taken {
			continue
		}
		if _, taken := pending[code]; taken {
			continue
		}
		return code, nil
	}
	return "", ErrCodeSpaceExhausted
}

// Report renders the catalog report at the catalog's current time.
func (c *Catalog) Report() string {
	return ExportReport(c.Entries(), c.now())
}

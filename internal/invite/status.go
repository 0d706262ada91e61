package invite

import (
	"time"

	"github.com/fairyhunter13/invite-registry/internal/model"
)

// Reason explains why a code cannot be redeemed. The zero value means it can.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNotFound      Reason = "not found"
	ReasonExpired       Reason = "expired"
	ReasonUsageLimitHit Reason = "usage limit reached"
)

// Status is the lifecycle state derived from usage and expiry.
// Expired and exhausted are terminal.
type Status string

const (
	StatusAvailable Status = "available"
	StatusExpired   Status = "expired"
	StatusExhausted Status = "exhausted"
)

// ValidationResult is the outcome of looking a code up in a catalog.
// Entry is a snapshot and is set whenever the code exists.
type ValidationResult struct {
	Valid  bool
	Reason Reason
	Entry  *model.InviteCode
}

// Check reports why entry cannot be redeemed at now, or ReasonNone.
// Expiry is checked before the usage limit.
func Check(entry model.InviteCode, now time.Time) Reason {
	if !now.Before(entry.ExpiresAt) {
		return ReasonExpired
	}
	if entry.CurrentUses >= entry.MaxUses {
		return ReasonUsageLimitHit
	}
	return ReasonNone
}

// Evaluate builds the validation result for a possibly missing entry.
func Evaluate(entry *model.InviteCode, now time.Time) ValidationResult {
	if entry == nil {
		return ValidationResult{Reason: ReasonNotFound}
	}
	reason := Check(*entry, now)
	return ValidationResult{
		Valid:  reason == ReasonNone,
		Reason: reason,
		Entry:  entry,
	}
}

// StatusOf returns the live status of entry at now.
func StatusOf(entry model.InviteCode, now time.Time) Status {
	switch Check(entry, now) {
	case ReasonExpired:
		return StatusExpired
	case ReasonUsageLimitHit:
		return StatusExhausted
	default:
		return StatusAvailable
	}
}

// Stamp records one redemption on entry. The first redemption also records
// when and by whom; later ones leave that untouched.
// Callers must have checked the entry and must hold whatever lock guards it.
func Stamp(entry *model.InviteCode, redeemerID string, now time.Time) {
	if entry.CurrentUses == 0 {
		usedAt := now
		usedBy := redeemerID
		entry.UsedAt = &usedAt
		entry.UsedBy = &usedBy
	}
	entry.CurrentUses++
}

// clone copies entry so that callers cannot reach catalog-owned pointers.
func clone(entry model.InviteCode) model.InviteCode {
	if entry.UsedAt != nil {
		usedAt := *entry.UsedAt
		entry.UsedAt = &usedAt
	}
	if entry.UsedBy != nil {
		usedBy := *entry.UsedBy
		entry.UsedBy = &usedBy
	}
	return entry
}

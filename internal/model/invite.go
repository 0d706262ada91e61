package model

import "time"

// InviteType is the role hint granted to whoever redeems a code.
type InviteType string

const (
	InviteTypeDesigner InviteType = "designer"
	InviteTypeClient   InviteType = "client"
	InviteTypeAdmin    InviteType = "admin"
)

// Valid reports whether t is one of the known invite types.
func (t InviteType) Valid() bool {
	switch t {
	case InviteTypeDesigner, InviteTypeClient, InviteTypeAdmin:
		return true
	default:
		return false
	}
}

// InviteCode represents one redeemable registration token.
// UsedAt and UsedBy describe the first redemption only.
type InviteCode struct {
	Code        string     `json:"code"`
	Type        InviteType `json:"type"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	MaxUses     int        `json:"max_uses"`
	CurrentUses int        `json:"current_uses"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	UsedBy      *string    `json:"used_by,omitempty"`
	Description string     `json:"description,omitempty"`
}

// InviteResponse is the API view of an invite code with its live status.
type InviteResponse struct {
	InviteCode
	Status string `json:"status"`
}

// ValidationResponse is the API response for POST /api/invites/validate
type ValidationResponse struct {
	Valid  bool            `json:"valid"`
	Reason string          `json:"reason,omitempty"`
	Invite *InviteResponse `json:"invite,omitempty"`
}

// BatchResponse is the API response for POST /api/invites/batch
type BatchResponse struct {
	Codes []InviteResponse `json:"codes"`
}

// CreateBatchRequest is the DTO for issuing a batch of invite codes.
// Omitted optional fields fall back to the configured defaults.
type CreateBatchRequest struct {
	Count       *int   `json:"count" validate:"required,gte=0"`
	Type        string `json:"type" validate:"omitempty,oneof=designer client admin"`
	ExpiryDays  *int   `json:"expiry_days" validate:"omitempty,gte=0"`
	MaxUses     *int   `json:"max_uses" validate:"omitempty,gte=1"`
	Description string `json:"description" validate:"max=255"`
}

// ValidateRequest is the DTO for checking a code without consuming it.
type ValidateRequest struct {
	Code string `json:"code" validate:"required,invitecode"`
}

// RedeemRequest is the DTO for redeeming a code.
type RedeemRequest struct {
	Code       string `json:"code" validate:"required,invitecode"`
	RedeemerID string `json:"redeemer_id" validate:"required,notblank,max=255"`
}

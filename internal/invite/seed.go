package invite

import (
	"time"

	"github.com/fairyhunter13/invite-registry/internal/model"
)

// SeedExpiryDays is how long seed codes stay valid from the moment they are built.
const SeedExpiryDays = 90

var seedCodes = []struct {
	code        string
	typ         model.InviteType
	description string
}{
	{"DESIGN01", model.InviteTypeDesigner, "Designer invite - first month of service free"},
	{"CLIENT01", model.InviteTypeClient, "Client invite - discount on the first published project"},
	{"PREMIUM1", model.InviteTypeDesigner, "Premium designer invite - verified designer status on signup"},
	{"STARTUP1", model.InviteTypeClient, "Startup invite - enterprise service discount"},
	{"CREATIVE", model.InviteTypeDesigner, "Creative designer invite - featured portfolio placement"},
	{"BUSINESS", model.InviteTypeClient, "Business client invite - dedicated account manager"},
	{"ARTIST01", model.InviteTypeDesigner, "Artist invite - priority access to platform art projects"},
	{"BRAND001", model.InviteTypeClient, "Brand invite - dedicated brand design project channel"},
	{"STUDIO01", model.InviteTypeDesigner, "Design studio invite - free trial of team collaboration"},
	{"PARTNER1", model.InviteTypeClient, "Partner invite - long-term partnership pricing"},
}

// Seed returns the ten pre-provisioned single-use codes that bootstrap
// registration before any codes have been issued.
func Seed(now time.Time) []model.InviteCode {
	expiresAt := now.Add(SeedExpiryDays * 24 * time.Hour)
	out := make([]model.InviteCode, 0, len(seedCodes))
	for _, s := range seedCodes {
		out = append(out, model.InviteCode{
			Code:        s.code,
			Type:        s.typ,
			CreatedAt:   now,
			ExpiresAt:   expiresAt,
			MaxUses:     1,
			Description: s.description,
		})
	}
	return out
}

package invite

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/fairyhunter13/invite-registry/internal/model"
)

const reportDateLayout = "2006-01-02"

var typeLabels = map[model.InviteType]string{
	model.InviteTypeDesigner: "Designer",
	model.InviteTypeClient:   "Client",
	model.InviteTypeAdmin:    "Administrator",
}

// FormatSummary renders entry's status as display text.
func FormatSummary(entry model.InviteCode, now time.Time) string {
	label, ok := typeLabels[entry.Type]
	if !ok {
		label = string(entry.Type)
	}
	description := entry.Description
	if description == "" {
		description = "none"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Code: %s\n", entry.Code)
	fmt.Fprintf(&b, "Type: %s\n", label)
	fmt.Fprintf(&b, "Status: %s\n", StatusOf(entry, now))
	fmt.Fprintf(&b, "Expires: %s (%s)\n",
		entry.ExpiresAt.Format(reportDateLayout),
		humanize.RelTime(entry.ExpiresAt, now, "ago", "from now"))
	fmt.Fprintf(&b, "Uses: %d/%d\n", entry.CurrentUses, entry.MaxUses)
	if entry.UsedBy != nil && entry.UsedAt != nil {
		fmt.Fprintf(&b, "First used: %s by %s\n", entry.UsedAt.Format(time.RFC3339), *entry.UsedBy)
	}
	fmt.Fprintf(&b, "Description: %s", description)
	return b.String()
}

// ExportReport renders every entry, numbered in the given order, between a
// header with catalog totals and a footer with redemption instructions.
func ExportReport(entries []model.InviteCode, now time.Time) string {
	counts := make(map[Status]int, 3)
	for _, e := range entries {
		counts[StatusOf(e, now)]++
	}

	var b strings.Builder
	b.WriteString("=== Invite Code Report ===\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Total: %s\n", humanize.Comma(int64(len(entries))))
	fmt.Fprintf(&b, "Available: %d, Expired: %d, Exhausted: %d\n",
		counts[StatusAvailable], counts[StatusExpired], counts[StatusExhausted])

	for i, e := range entries {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, FormatSummary(e, now))
	}

	b.WriteString(`
=== Usage Notes ===
1. Each code can be redeemed up to its usage limit
2. Redeem codes before they expire
3. Different code types grant different roles
4. Contact support if a code is rejected

=== Registration Flow ===
1. Open the registration page
2. Enter the invite code
3. Fill in your profile
4. Verify your email address
5. Start using the platform
`)
	return b.String()
}

package invite

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/invite-registry/internal/model"
)

func TestStatusOf(t *testing.T) {
	testCases := []struct {
		name  string
		entry model.InviteCode
		want  Status
	}{
		{name: "available", entry: entry("A", 2, 1, fixedNow.Add(time.Hour)), want: StatusAvailable},
		{name: "exhausted", entry: entry("B", 2, 2, fixedNow.Add(time.Hour)), want: StatusExhausted},
		{name: "expired", entry: entry("C", 2, 0, fixedNow.Add(-time.Hour)), want: StatusExpired},
		{name: "expired_wins_over_exhausted", entry: entry("D", 1, 1, fixedNow), want: StatusExpired},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusOf(tc.entry, fixedNow))
		})
	}
}

func TestStamp_OnlyFirstRedemptionRecorded(t *testing.T) {
	e := entry("STAMP001", 3, 0, fixedNow.Add(time.Hour))

	Stamp(&e, "first", fixedNow)
	Stamp(&e, "second", fixedNow.Add(time.Minute))

	assert.Equal(t, 2, e.CurrentUses)
	require.NotNil(t, e.UsedBy)
	assert.Equal(t, "first", *e.UsedBy)
	assert.Equal(t, fixedNow, *e.UsedAt)
}

func TestSeed(t *testing.T) {
	seed := Seed(fixedNow)

	require.Len(t, seed, 10)
	codes := make([]string, 0, len(seed))
	types := map[model.InviteType]int{}
	for _, s := range seed {
		codes = append(codes, s.Code)
		types[s.Type]++
		assert.Len(t, s.Code, DefaultCodeLength)
		assert.Equal(t, 1, s.MaxUses)
		assert.Equal(t, 0, s.CurrentUses)
		assert.Equal(t, fixedNow.Add(90*24*time.Hour), s.ExpiresAt)
		assert.NotEmpty(t, s.Description)
	}
	assert.Equal(t, []string{
		"DESIGN01", "CLIENT01", "PREMIUM1", "STARTUP1", "CREATIVE",
		"BUSINESS", "ARTIST01", "BRAND001", "STUDIO01", "PARTNER1",
	}, codes)
	assert.Equal(t, 5, types[model.InviteTypeDesigner])
	assert.Equal(t, 5, types[model.InviteTypeClient])
}

func TestFormatSummary(t *testing.T) {
	e := Seed(fixedNow)[0]

	summary := FormatSummary(e, fixedNow)

	assert.Contains(t, summary, "Code: DESIGN01\n")
	assert.Contains(t, summary, "Type: Designer\n")
	assert.Contains(t, summary, "Status: available\n")
	assert.Contains(t, summary, "Expires: 2027-01-17 (")
	assert.Contains(t, summary, "from now)")
	assert.Contains(t, summary, "Uses: 0/1\n")
	assert.True(t, strings.HasSuffix(summary, "Description: "+e.Description))
	assert.NotContains(t, summary, "First used")
}

func TestFormatSummary_UsedAndExpired(t *testing.T) {
	e := entry("USEDCODE", 1, 0, fixedNow.Add(time.Hour))
	Stamp(&e, "user-42", fixedNow)
	later := fixedNow.Add(48 * time.Hour)

	summary := FormatSummary(e, later)

	assert.Contains(t, summary, "Type: Client\n")
	assert.Contains(t, summary, "Status: expired\n")
	assert.Contains(t, summary, " ago)")
	assert.Contains(t, summary, "Uses: 1/1\n")
	assert.Contains(t, summary, "First used: 2026-10-19T12:00:00Z by user-42\n")
	assert.True(t, strings.HasSuffix(summary, "Description: none"))
}

func TestExportReport(t *testing.T) {
	c := NewSeededCatalog(WithClock(newTestClock(fixedNow).Now))
	require.True(t, c.Redeem("CLIENT01", "user-1"))
	require.NoError(t, c.Add(entry("OLDCODE1", 1, 0, fixedNow.Add(-time.Hour))))

	report := c.Report()

	assert.True(t, strings.HasPrefix(report, "=== Invite Code Report ===\n"))
	assert.Contains(t, report, "Generated: 2026-10-19 12:00:00 UTC\n")
	assert.Contains(t, report, "Total: 11\n")
	assert.Contains(t, report, "Available: 9, Expired: 1, Exhausted: 1\n")
	assert.Contains(t, report, "\n1. Code: DESIGN01\n")
	assert.Contains(t, report, "\n11. Code: OLDCODE1\n")
	assert.Contains(t, report, "=== Usage Notes ===")
	assert.Contains(t, report, "=== Registration Flow ===")

	designIdx := strings.Index(report, "DESIGN01")
	partnerIdx := strings.Index(report, "PARTNER1")
	assert.Less(t, designIdx, partnerIdx, "entries keep catalog order")
}

func TestExportReport_Empty(t *testing.T) {
	report := ExportReport(nil, fixedNow)

	assert.Contains(t, report, "Total: 0\n")
	assert.Contains(t, report, "Available: 0, Expired: 0, Exhausted: 0\n")
	assert.NotContains(t, report, "1. Code:")
}

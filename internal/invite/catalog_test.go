package invite

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/invite-registry/internal/model"
)

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func entry(code string, maxUses, currentUses int, expiresAt time.Time) model.InviteCode {
	return model.InviteCode{
		Code:        code,
		Type:        model.InviteTypeClient,
		CreatedAt:   fixedNow.Add(-time.Hour),
		ExpiresAt:   expiresAt,
		MaxUses:     maxUses,
		CurrentUses: currentUses,
	}
}

func TestCatalog_Validate_NotFound(t *testing.T) {
	testCases := []struct {
		name    string
		catalog *Catalog
	}{
		{name: "empty_catalog", catalog: NewCatalog(WithClock(newTestClock(fixedNow).Now))},
		{name: "seeded_catalog", catalog: NewSeededCatalog(WithClock(newTestClock(fixedNow).Now))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.catalog.Validate("NOPE0000")

			assert.False(t, result.Valid)
			assert.Equal(t, ReasonNotFound, result.Reason)
			assert.Nil(t, result.Entry)
		})
	}
}

func TestCatalog_Validate_ExactMatchOnly(t *testing.T) {
	c := NewSeededCatalog(WithClock(newTestClock(fixedNow).Now))

	assert.Equal(t, ReasonNotFound, c.Validate("design01").Reason)
	assert.Equal(t, ReasonNotFound, c.Validate(" DESIGN01").Reason)
	assert.True(t, c.Validate("DESIGN01").Valid)
}

func TestCatalog_Validate_ExpiredBeatsAvailableUses(t *testing.T) {
	c := NewCatalog(WithClock(newTestClock(fixedNow).Now))
	require.NoError(t, c.Add(entry("OLDCODE1", 5, 1, fixedNow.Add(-time.Minute))))

	result := c.Validate("OLDCODE1")

	assert.False(t, result.Valid)
	assert.Equal(t, ReasonExpired, result.Reason)
	require.NotNil(t, result.Entry)
	assert.Equal(t, "OLDCODE1", result.Entry.Code)
}

func TestCatalog_Validate_ExpiresAtBoundary(t *testing.T) {
	c := NewCatalog(WithClock(newTestClock(fixedNow).Now))
	require.NoError(t, c.Add(entry("EDGECASE", 1, 0, fixedNow)))

	assert.Equal(t, ReasonExpired, c.Validate("EDGECASE").Reason, "code is unusable at the expiry instant")
	assert.True(t, c.ValidateAt("EDGECASE", fixedNow.Add(-time.Nanosecond)).Valid)
}

func TestCatalog_Validate_UsageLimitReached(t *testing.T) {
	c := NewCatalog(WithClock(newTestClock(fixedNow).Now))
	require.NoError(t, c.Add(entry("FULLCODE", 2, 2, fixedNow.Add(time.Hour))))

	result := c.Validate("FULLCODE")

	assert.False(t, result.Valid)
	assert.Equal(t, ReasonUsageLimitHit, result.Reason)
}

func TestCatalog_Validate_ExpiredAndExhaustedReportsExpired(t *testing.T) {
	c := NewCatalog(WithClock(newTestClock(fixedNow).Now))
	require.NoError(t, c.Add(entry("DONEDONE", 1, 1, fixedNow.Add(-time.Hour))))

	assert.Equal(t, ReasonExpired, c.Validate("DONEDONE").Reason)
}

func TestCatalog_Validate_HasNoSideEffects(t *testing.T) {
	c := NewSeededCatalog(WithClock(newTestClock(fixedNow).Now))

	for i := 0; i < 3; i++ {
		result := c.Validate("CLIENT01")
		require.True(t, result.Valid)
		result.Entry.CurrentUses = 99
	}

	stored, ok := c.Get("CLIENT01")
	require.True(t, ok)
	assert.Equal(t, 0, stored.CurrentUses, "mutating a snapshot must not reach the catalog")
}

func TestCatalog_SeedScenario(t *testing.T) {
	clock := newTestClock(fixedNow)
	c := NewSeededCatalog(WithClock(clock.Now))

	before := c.Validate("DESIGN01")
	require.True(t, before.Valid)
	assert.Equal(t, 1, before.Entry.MaxUses)
	assert.Equal(t, 0, before.Entry.CurrentUses)
	assert.Equal(t, fixedNow.Add(90*24*time.Hour), before.Entry.ExpiresAt)

	clock.Advance(time.Minute)
	assert.True(t, c.Redeem("DESIGN01", "user-42"))

	stored, ok := c.Get("DESIGN01")
	require.True(t, ok)
	assert.Equal(t, 1, stored.CurrentUses)
	require.NotNil(t, stored.UsedBy)
	assert.Equal(t, "user-42", *stored.UsedBy)
	require.NotNil(t, stored.UsedAt)
	assert.Equal(t, fixedNow.Add(time.Minute), *stored.UsedAt)

	after := c.Validate("DESIGN01")
	assert.False(t, after.Valid)
	assert.Equal(t, ReasonUsageLimitHit, after.Reason)
}

func TestCatalog_Redeem_RejectedLeavesEntryUntouched(t *testing.T) {
	c := NewCatalog(WithClock(newTestClock(fixedNow).Now))
	require.NoError(t, c.Add(
		entry("EXPIRED1", 3, 0, fixedNow.Add(-time.Hour)),
		entry("FULLCODE", 1, 1, fixedNow.Add(time.Hour)),
	))

	assert.False(t, c.Redeem("MISSING1", "user-1"))
	assert.False(t, c.Redeem("EXPIRED1", "user-1"))
	assert.False(t, c.Redeem("FULLCODE", "user-1"))

	expired, _ := c.Get("EXPIRED1")
	assert.Equal(t, 0, expired.CurrentUses)
	assert.Nil(t, expired.UsedBy)
	full, _ := c.Get("FULLCODE")
	assert.Equal(t, 1, full.CurrentUses)
	assert.Equal(t, 1, c.Len())
}

func TestCatalog_Redeem_FirstRedeemerIsKept(t *testing.T) {
	clock := newTestClock(fixedNow)
	c := NewCatalog(WithClock(clock.Now))
	require.NoError(t, c.Add(entry("TEAMCODE", 3, 0, fixedNow.Add(24*time.Hour))))

	require.True(t, c.Redeem("TEAMCODE", "alice"))
	clock.Advance(time.Hour)
	require.True(t, c.Redeem("TEAMCODE", "bob"))
	require.True(t, c.Redeem("TEAMCODE", "carol"))
	assert.False(t, c.Redeem("TEAMCODE", "dave"), "fourth redemption exceeds max uses")

	stored, ok := c.Get("TEAMCODE")
	require.True(t, ok)
	assert.Equal(t, 3, stored.CurrentUses)
	assert.Equal(t, "alice", *stored.UsedBy)
	assert.Equal(t, fixedNow, *stored.UsedAt)
}

func TestCatalog_Redeem_NotIdempotent(t *testing.T) {
	c := NewCatalog(WithClock(newTestClock(fixedNow).Now))
	require.NoError(t, c.Add(entry("TWICE001", 2, 0, fixedNow.Add(time.Hour))))

	assert.True(t, c.Redeem("TWICE001", "same-user"))
	assert.True(t, c.Redeem("TWICE001", "same-user"))

	stored, _ := c.Get("TWICE001")
	assert.Equal(t, 2, stored.CurrentUses)
}

func TestCatalog_TryConsume_ReturnsUpdatedEntry(t *testing.T) {
	c := NewSeededCatalog(WithClock(newTestClock(fixedNow).Now))

	result := c.TryConsume("PARTNER1", "user-7")

	require.True(t, result.Valid)
	assert.Equal(t, ReasonNone, result.Reason)
	require.NotNil(t, result.Entry)
	assert.Equal(t, 1, result.Entry.CurrentUses)
	assert.Equal(t, "user-7", *result.Entry.UsedBy)

	again := c.TryConsume("PARTNER1", "user-8")
	assert.False(t, again.Valid)
	assert.Equal(t, ReasonUsageLimitHit, again.Reason)
	require.NotNil(t, again.Entry)
	assert.Equal(t, "user-7", *again.Entry.UsedBy)
}

func TestCatalog_Redeem_ConcurrentNeverExceedsMaxUses(t *testing.T) {
	c := NewCatalog(WithClock(newTestClock(fixedNow).Now))
	require.NoError(t, c.Add(entry("RACECODE", 5, 0, fixedNow.Add(time.Hour))))

	var wg sync.WaitGroup
	var successes atomic.Int32
	start := make(chan struct{})
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			<-start
			if c.Redeem("RACECODE", userID) {
				successes.Add(1)
			}
		}(fmt.Sprintf("user_%03d", i))
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(5), successes.Load(), "exactly max_uses redemptions should succeed")
	stored, _ := c.Get("RACECODE")
	assert.Equal(t, 5, stored.CurrentUses)
	require.NotNil(t, stored.UsedBy)
}

func TestCatalog_Add_RejectsDuplicates(t *testing.T) {
	c := NewCatalog(WithClock(newTestClock(fixedNow).Now))
	require.NoError(t, c.Add(entry("UNIQUE01", 1, 0, fixedNow.Add(time.Hour))))

	err := c.Add(entry("OTHER001", 1, 0, fixedNow.Add(time.Hour)), entry("UNIQUE01", 1, 0, fixedNow.Add(time.Hour)))
	assert.ErrorIs(t, err, ErrDuplicateCode)
	assert.Equal(t, 1, c.Len(), "a rejected Add must not insert anything")

	err = c.Add(entry("REPEAT01", 1, 0, fixedNow), entry("REPEAT01", 1, 0, fixedNow))
	assert.ErrorIs(t, err, ErrDuplicateCode)
	assert.Equal(t, 1, c.Len())
}

func TestCatalog_Entries_InsertionOrder(t *testing.T) {
	c := NewSeededCatalog(WithClock(newTestClock(fixedNow).Now))

	entries := c.Entries()

	require.Len(t, entries, 10)
	assert.Equal(t, "DESIGN01", entries[0].Code)
	assert.Equal(t, "PARTNER1", entries[9].Code)
}

func TestCatalog_Issue_UniqueAgainstCatalog(t *testing.T) {
	// The reader first yields a code that already exists, then a fresh one.
	existing := bytes.Repeat([]byte{0}, 4) // AAAA
	fresh := []byte{1, 1, 1, 1}            // BBBB
	gen := NewGenerator(bytes.NewReader(append(existing, fresh...)))
	c := NewCatalog(WithClock(newTestClock(fixedNow).Now), WithGenerator(gen))
	require.NoError(t, c.Add(entry("AAAA", 1, 0, fixedNow.Add(time.Hour))))

	issued, err := c.Issue(BatchSpec{Count: 1, Type: model.InviteTypeAdmin, ExpiryDays: 7, MaxUses: 2, CodeLength: 4})

	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Equal(t, "BBBB", issued[0].Code)
	assert.Equal(t, model.InviteTypeAdmin, issued[0].Type)
	assert.Equal(t, fixedNow.Add(7*24*time.Hour), issued[0].ExpiresAt)
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Validate("BBBB").Valid)
}

func TestCatalog_Issue_CodeSpaceExhausted(t *testing.T) {
	gen := NewGenerator(bytes.NewReader(bytes.Repeat([]byte{0}, maxIssueAttempts*2)))
	c := NewCatalog(WithClock(newTestClock(fixedNow).Now), WithGenerator(gen))
	require.NoError(t, c.Add(entry("AA", 1, 0, fixedNow.Add(time.Hour))))

	issued, err := c.Issue(BatchSpec{Count: 1, ExpiryDays: 1, MaxUses: 1, CodeLength: 2})

	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.Empty(t, issued)
	assert.Equal(t, 1, c.Len())
}

func TestCatalog_Issue_AllOrNothing(t *testing.T) {
	// Two distinct codes, then the second one forever: the third draw never
	// finds a free code, so nothing from the batch may stay in the catalog.
	src := append([]byte{0, 1}, bytes.Repeat([]byte{1}, maxIssueAttempts*2)...)
	gen := NewGenerator(bytes.NewReader(src))
	c := NewCatalog(WithClock(newTestClock(fixedNow).Now), WithGenerator(gen))

	issued, err := c.Issue(BatchSpec{Count: 3, ExpiryDays: 1, MaxUses: 1, CodeLength: 1})

	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.Nil(t, issued)
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Validate("A").Valid)
	assert.False(t, c.Validate("B").Valid)
}

func TestCatalog_Issue_InvalidSpec(t *testing.T) {
	c := NewCatalog()

	_, err := c.Issue(BatchSpec{Count: -1, ExpiryDays: 1, MaxUses: 1})

	assert.ErrorIs(t, err, ErrInvalidCount)
	assert.Equal(t, 0, c.Len())
}

func TestCatalog_Issue_ManyCodes(t *testing.T) {
	c := NewSeededCatalog()

	issued, err := c.Issue(BatchSpec{Count: 200, Type: model.InviteTypeDesigner, ExpiryDays: 30, MaxUses: 1})

	require.NoError(t, err)
	assert.Len(t, issued, 200)
	assert.Equal(t, 210, c.Len())
}

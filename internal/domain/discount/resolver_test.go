package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/shopkit/internal/domain/cart"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testResolver() *Resolver {
	return NewResolver().WithClock(func() time.Time { return fixedNow })
}

func active(id string, pct int64, target Target) Discount {
	return Discount{
		ID:               id,
		ShopID:           "shop1",
		Percentage:       decimal.NewFromInt(pct),
		Enabled:          true,
		StartDate:        fixedNow.Add(-24 * time.Hour),
		EndDate:          fixedNow.Add(24 * time.Hour),
		AvailableOnline:  true,
		AvailableInStore: true,
		Target:           target,
	}
}

func line() cart.Line {
	return cart.Line{
		ProductID:   "p1",
		VariantID:   "v1",
		CategoryIDs: []string{"c1", "c2"},
		UnitPrice:   decimal.NewFromInt(100),
		Quantity:    1,
	}
}

func TestResolve_SpecificityPrecedence(t *testing.T) {
	r := testResolver()

	// A lower-percentage variant discount still beats product, category and
	// storewide ones: specificity decides first, percentage only breaks ties
	// within a level.
	candidates := []Discount{
		active("store", 50, Storewide()),
		active("cat", 40, ForCategory("c1")),
		active("prod", 30, ForProducts("p1")),
		active("variant", 5, ForVariants("v1")),
	}

	got := r.Resolve(line(), candidates, cart.ChannelOnline)
	require.NotNil(t, got)
	assert.Equal(t, "variant", got.ID)
}

func TestResolve_FallsThroughLevels(t *testing.T) {
	r := testResolver()

	tests := []struct {
		name       string
		candidates []Discount
		wantID     string
	}{
		{
			name: "product beats category",
			candidates: []Discount{
				active("cat", 40, ForCategory("c1")),
				active("prod", 10, ForProducts("p1")),
			},
			wantID: "prod",
		},
		{
			name: "category beats storewide",
			candidates: []Discount{
				active("store", 40, Storewide()),
				active("cat", 10, ForCategory("c2")),
			},
			wantID: "cat",
		},
		{
			name: "storewide when nothing more specific matches",
			candidates: []Discount{
				active("other-prod", 40, ForProducts("p9")),
				active("store", 10, Storewide()),
			},
			wantID: "store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(line(), tt.candidates, cart.ChannelOnline)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestResolve_VariantTargetNeedsVariantLine(t *testing.T) {
	r := testResolver()
	l := line()
	l.VariantID = ""

	got := r.Resolve(l, []Discount{active("variant", 50, ForVariants("v1"))}, cart.ChannelOnline)
	assert.Nil(t, got)
}

func TestResolve_FiltersInactive(t *testing.T) {
	r := testResolver()

	expired := active("expired", 50, Storewide())
	expired.EndDate = fixedNow.Add(-time.Hour)

	notStarted := active("future", 50, Storewide())
	notStarted.StartDate = fixedNow.Add(time.Hour)

	disabled := active("disabled", 50, Storewide())
	disabled.Enabled = false

	onlineOnly := active("online-only", 50, Storewide())
	onlineOnly.AvailableInStore = false

	candidates := []Discount{expired, notStarted, disabled, onlineOnly, active("ok", 10, Storewide())}

	got := r.Resolve(line(), candidates, cart.ChannelInStore)
	require.NotNil(t, got)
	assert.Equal(t, "ok", got.ID)
}

func TestResolve_BoundaryDatesInclusive(t *testing.T) {
	r := testResolver()

	startsNow := active("edge", 10, Storewide())
	startsNow.StartDate = fixedNow
	startsNow.EndDate = fixedNow

	got := r.Resolve(line(), []Discount{startsNow}, cart.ChannelOnline)
	require.NotNil(t, got)
	assert.Equal(t, "edge", got.ID)
}

func TestResolve_TieBreaks(t *testing.T) {
	r := testResolver()

	t.Run("highest percentage wins", func(t *testing.T) {
		got := r.Resolve(line(), []Discount{
			active("small", 10, ForCategory("c1")),
			active("big", 25, ForCategory("c2")),
		}, cart.ChannelOnline)
		require.NotNil(t, got)
		assert.Equal(t, "big", got.ID)
	})

	t.Run("earlier start date breaks percentage tie", func(t *testing.T) {
		older := active("older", 20, ForCategory("c1"))
		older.StartDate = fixedNow.Add(-48 * time.Hour)
		newer := active("newer", 20, ForCategory("c2"))

		got := r.Resolve(line(), []Discount{newer, older}, cart.ChannelOnline)
		require.NotNil(t, got)
		assert.Equal(t, "older", got.ID)
	})

	t.Run("lowest id is the final tie break", func(t *testing.T) {
		a := active("a", 20, ForCategory("c1"))
		b := active("b", 20, ForCategory("c1"))

		got := r.Resolve(line(), []Discount{b, a}, cart.ChannelOnline)
		require.NotNil(t, got)
		assert.Equal(t, "a", got.ID)
	})
}

func TestResolve_NoCandidates(t *testing.T) {
	r := testResolver()
	assert.Nil(t, r.Resolve(line(), nil, cart.ChannelOnline))
}

func TestCovers(t *testing.T) {
	l := line()

	assert.True(t, Storewide().Covers(l))
	assert.True(t, ForProducts("p1", "p2").Covers(l))
	assert.False(t, ForProducts("p3").Covers(l))
	assert.True(t, ForVariants("v1").Covers(l))
	assert.False(t, ForVariants("v2").Covers(l))
	assert.True(t, ForCategory("c2").Covers(l))
	assert.False(t, ForCategory("c9").Covers(l))
}

package plan

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLimitRepo struct {
	limit    *Limit
	limitErr error
	count    int
	countErr error

	askedCode string
}

func (m *mockLimitRepo) FindLimit(_ context.Context, codeName string) (*Limit, error) {
	m.askedCode = codeName
	return m.limit, m.limitErr
}

func (m *mockLimitRepo) CountActive(_ context.Context, _ string, _ Resource) (int, error) {
	return m.count, m.countErr
}

func TestCodeName(t *testing.T) {
	assert.Equal(t, "PREMIUM_DISCOUNT_LIMIT", CodeName(Premium, ResourceDiscount))
	assert.Equal(t, "STANDARD_DISCOUNT_CODE_LIMIT", CodeName(Standard, ResourceDiscountCode))
	assert.Equal(t, "ADVANCED_PRODUCT_LIMIT", CodeName(Advanced, ResourceProduct))
}

func TestCheckLimit(t *testing.T) {
	tests := []struct {
		name        string
		repo        *mockLimitRepo
		wantAllowed bool
		wantLimit   int
	}{
		{
			name:        "missing row means unlimited",
			repo:        &mockLimitRepo{limit: nil, count: 1000},
			wantAllowed: true,
			wantLimit:   Unlimited,
		},
		{
			name:        "minus one means unlimited",
			repo:        &mockLimitRepo{limit: &Limit{Value: -1}, count: 1000},
			wantAllowed: true,
			wantLimit:   Unlimited,
		},
		{
			name:        "under limit allowed",
			repo:        &mockLimitRepo{limit: &Limit{Value: 5}, count: 4},
			wantAllowed: true,
			wantLimit:   5,
		},
		{
			name:        "at limit denied",
			repo:        &mockLimitRepo{limit: &Limit{Value: 5}, count: 5},
			wantAllowed: false,
			wantLimit:   5,
		},
		{
			name:        "over limit denied",
			repo:        &mockLimitRepo{limit: &Limit{Value: 5}, count: 7},
			wantAllowed: false,
			wantLimit:   5,
		},
		{
			name:        "zero limit denies everything",
			repo:        &mockLimitRepo{limit: &Limit{Value: 0}, count: 0},
			wantAllowed: false,
			wantLimit:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(tt.repo)

			check, err := g.CheckLimit(context.Background(), "shop1", Standard, ResourceDiscount)

			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, check.Allowed)
			assert.Equal(t, tt.wantLimit, check.Limit)
			if !tt.wantAllowed {
				assert.NotEmpty(t, check.Message)
			}
		})
	}
}

func TestCheckLimit_LooksUpPlanSpecificRow(t *testing.T) {
	repo := &mockLimitRepo{limit: &Limit{Value: 3}, count: 0}
	g := NewGuard(repo)

	_, err := g.CheckLimit(context.Background(), "shop1", Premium, ResourceDiscountCode)

	require.NoError(t, err)
	assert.Equal(t, "PREMIUM_DISCOUNT_CODE_LIMIT", repo.askedCode)
}

func TestCheckLimit_RepositoryErrors(t *testing.T) {
	g := NewGuard(&mockLimitRepo{limitErr: errors.New("db down")})
	_, err := g.CheckLimit(context.Background(), "shop1", Standard, ResourceDiscount)
	require.Error(t, err)

	g = NewGuard(&mockLimitRepo{limit: &Limit{Value: 5}, countErr: errors.New("db down")})
	_, err = g.CheckLimit(context.Background(), "shop1", Standard, ResourceDiscount)
	require.Error(t, err)
}

func TestTypeValid(t *testing.T) {
	assert.True(t, Standard.Valid())
	assert.True(t, Advanced.Valid())
	assert.True(t, Premium.Valid())
	assert.False(t, Type("FREE").Valid())
}

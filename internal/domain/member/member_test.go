package member

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMember(t *testing.T) {
	m, err := NewMember("Ada Obi", "M-0001", decimal.NewFromInt(5000))
	require.NoError(t, err)
	assert.True(t, m.FreeEquity.Equal(decimal.NewFromInt(5000)))
	assert.True(t, m.LockedEquity.IsZero())

	_, err = NewMember("", "M-0002", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NewMember("Bola", "M-0003", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMember_CanGuarantee(t *testing.T) {
	m, err := NewMember("Ada Obi", "M-0001", decimal.NewFromInt(5000))
	require.NoError(t, err)

	assert.True(t, m.CanGuarantee(decimal.NewFromInt(5000)))
	assert.False(t, m.CanGuarantee(decimal.NewFromFloat(5000.01)))
}

func TestMember_LockUnlockConservesEquity(t *testing.T) {
	m, err := NewMember("Ada Obi", "M-0001", decimal.NewFromInt(5000))
	require.NoError(t, err)
	total := m.TotalEquity()

	require.NoError(t, m.LockEquity(decimal.NewFromInt(3000)))
	assert.True(t, m.FreeEquity.Equal(decimal.NewFromInt(2000)))
	assert.True(t, m.LockedEquity.Equal(decimal.NewFromInt(3000)))
	assert.True(t, m.TotalEquity().Equal(total))

	// free equity can never go negative
	assert.ErrorIs(t, m.LockEquity(decimal.NewFromInt(2500)), ErrInsufficientEquity)

	require.NoError(t, m.UnlockEquity(decimal.NewFromInt(3000)))
	assert.True(t, m.FreeEquity.Equal(decimal.NewFromInt(5000)))
	assert.True(t, m.LockedEquity.IsZero())
	assert.True(t, m.TotalEquity().Equal(total))

	assert.ErrorIs(t, m.UnlockEquity(decimal.NewFromInt(1)), ErrInvalidAmount)
	assert.ErrorIs(t, m.LockEquity(decimal.Zero), ErrInvalidAmount)
}

func TestGuarantor_Removable(t *testing.T) {
	g, err := NewGuarantor(uuid.New(), uuid.New(), decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, g.Removable())

	g.ConsentStatus = shared.ConsentStatusApproved
	assert.False(t, g.Removable())

	g.ConsentStatus = shared.ConsentStatusRejected
	g.LockedEquity = decimal.NewFromInt(1000)
	assert.False(t, g.Removable())

	g.LockedEquity = decimal.Zero
	assert.True(t, g.Removable())

	_, err = NewGuarantor(uuid.New(), uuid.New(), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

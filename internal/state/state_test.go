package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmountBounds(t *testing.T) {
	_, err := ParseAmount(MaxAmount.String())
	require.NoError(t, err)

	over := new(bigIntHelper).plusOne(MaxAmount.String())
	_, err = ParseAmount(over)
	require.Error(t, err)

	_, err = ParseAmount("0")
	require.Error(t, err)

	_, err = ParseAmountAllowZero("0")
	require.NoError(t, err)

	_, err = ParseAmount("not-a-number")
	require.Error(t, err)
}

func TestAmountArithmetic(t *testing.T) {
	a, _ := ParseAmount("1000")
	b, _ := ParseAmount("400")
	require.Equal(t, "1400", a.Add(b).String())
	require.Equal(t, "600", a.Sub(b).String())
	require.Equal(t, "0", b.Sub(a).String())
	require.Equal(t, "400", Min(a, b).String())
}

func TestBalanceIsEmpty(t *testing.T) {
	b := &Balance{Available: ZeroAmount, Locked: ZeroAmount}
	require.True(t, b.IsEmpty())
	b.Available, _ = ParseAmount("1")
	require.False(t, b.IsEmpty())
}

func TestStateSliceSetBalanceDeletesEmptyRow(t *testing.T) {
	s := NewStateSlice()
	amt, _ := ParseAmount("5")
	s.SetBalance(&Balance{Address: "kaspa:A", Tick: "TEST", Available: amt})
	require.NotNil(t, s.GetBalance("kaspa:A", "TEST"))

	s.SetBalance(&Balance{Address: "kaspa:A", Tick: "TEST", Available: ZeroAmount, Locked: ZeroAmount})
	require.Nil(t, s.GetBalance("kaspa:A", "TEST"))
}

func TestStateSliceCloneIsIndependent(t *testing.T) {
	s := NewStateSlice()
	s.SetToken(&Token{Tick: "TEST", Minted: AmountFromUint64(10)})
	clone := s.Clone()
	s.GetToken("TEST").Minted = AmountFromUint64(99)
	require.Equal(t, "10", clone.GetToken("TEST").Minted.String())
}

func TestTickSyntax(t *testing.T) {
	require.True(t, ValidTickSyntax("TEST", false))
	require.False(t, ValidTickSyntax("te", false))
	hex64 := "ab0123456789ab0123456789ab0123456789ab0123456789ab0123456789ab01"
	require.False(t, ValidTickSyntax(hex64, false))
	require.True(t, ValidTickSyntax(hex64, true))
}

func TestReservedTicks(t *testing.T) {
	LoadReservedTicks([]string{"GOLD_kaspa:owner1", "junk-without-underscore"})
	require.NoError(t, CheckTickReserved("GOLD", "kaspa:owner1"))
	require.Error(t, CheckTickReserved("GOLD", "kaspa:someoneelse"))
	require.NoError(t, CheckTickReserved("SILVER", "kaspa:anyone"))
	LoadReservedTicks(nil)
}

func TestIgnoredTicks(t *testing.T) {
	require.True(t, IsIgnoredTick("kaspa"))
	require.False(t, IsIgnoredTick("TEST"))
}

// bigIntHelper avoids importing math/big twice at call sites in this file.
type bigIntHelper struct{}

func (bigIntHelper) plusOne(s string) string {
	v := append([]byte(nil), s...)
	i := len(v) - 1
	for i >= 0 {
		if v[i] != '9' {
			v[i]++
			return string(v)
		}
		v[i] = '0'
		i--
	}
	return "1" + string(v)
}

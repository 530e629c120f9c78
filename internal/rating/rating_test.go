package rating

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

func TestExpected(t *testing.T) {
	t.Run("equal ratings", func(t *testing.T) {
		require.InDelta(t, 0.5, Expected(1000, 1000), 1e-12)
	})

	t.Run("sums to one", func(t *testing.T) {
		faker := gofakeit.New(42)
		for i := 0; i < 500; i++ {
			a := faker.Number(0, 3000)
			b := faker.Number(0, 3000)
			require.InDelta(t, 1.0, Expected(a, b)+Expected(b, a), 1e-9, "a=%d b=%d", a, b)
		}
	})

	t.Run("never saturates", func(t *testing.T) {
		require.Less(t, Expected(100000, 0), 1.0)
		require.Greater(t, Expected(0, 100000), 0.0)
	})
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name       string
		winner     int
		loser      int
		k          int
		wantWinner int
		wantLoser  int
	}{
		{name: "favourite wins", winner: 1200, loser: 1000, k: DefaultK, wantWinner: 8, wantLoser: -8},
		{name: "underdog wins", winner: 1000, loser: 1200, k: DefaultK, wantWinner: 24, wantLoser: -24},
		{name: "equal ratings", winner: 1500, loser: 1500, k: DefaultK, wantWinner: 16, wantLoser: -16},
		{name: "huge gap", winner: 2400, loser: 1000, k: DefaultK, wantWinner: 0, wantLoser: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Compute(tt.winner, tt.loser, tt.k)
			require.Equal(t, tt.wantWinner, c.WinnerDelta)
			require.Equal(t, tt.wantLoser, c.LoserDelta)
		})
	}

	t.Run("expected values", func(t *testing.T) {
		c := Compute(1200, 1000, DefaultK)
		require.InDelta(t, 0.76, c.WinnerExpected, 0.005)
		require.InDelta(t, 0.24, c.LoserExpected, 0.005)
	})

	t.Run("symmetric without floors", func(t *testing.T) {
		faker := gofakeit.New(7)
		for i := 0; i < 200; i++ {
			r := faker.Number(0, 2500)
			c := Compute(r, r, DefaultK)
			require.Equal(t, c.WinnerDelta, -c.LoserDelta)
		}
	})
}

func TestComputeTierValue(t *testing.T) {
	t.Run("floors apply on lopsided matches", func(t *testing.T) {
		c := ComputeTierValue(2000, 800, 0)
		require.Equal(t, 1, c.WinnerDelta)
		require.Equal(t, -1, c.LoserDelta)
	})

	t.Run("regular matches use smaller K", func(t *testing.T) {
		c := ComputeTierValue(1000, 1000, TierValueK)
		require.Equal(t, 13, c.WinnerDelta)
		require.Equal(t, -13, c.LoserDelta)
	})
}

func TestExpectedGain(t *testing.T) {
	require.Equal(t, 24, ExpectedGain(1000, 1200, DefaultK))
	require.Equal(t, 8, ExpectedGain(1200, 1000, DefaultK))
}

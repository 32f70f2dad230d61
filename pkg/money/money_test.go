package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscounted(t *testing.T) {
	tests := []struct {
		name     string
		unit     int64
		qty      int
		discount float64
		want     int64
	}{
		{"no discount", 799, 1, 0, 799},
		{"three schools at ten percent", 1499, 3, 10, 4047},
		{"enterprise two schools", 3999, 2, 0, 7998},
		{"full discount", 3999, 5, 100, 0},
		{"half rounds up", 1, 1, 50, 1},
		{"fractional discount", 799, 1, 12.5, 699},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Discounted(tt.unit, tt.qty, tt.discount))
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, int64(809), Percent(4047, 20))
	assert.Equal(t, int64(160), Percent(799, 20))
	assert.Equal(t, int64(0), Percent(0, 20))
}

func TestDivRound(t *testing.T) {
	assert.Equal(t, int64(337), DivRound(4047, 12))
	assert.Equal(t, int64(1), DivRound(6, 12))
	assert.Equal(t, int64(0), DivRound(5, 12))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "£4,047", Format(4047, "GBP"))
	assert.Equal(t, "£799", Format(799, "gbp"))
	assert.Equal(t, "-£1,000", Format(-1000, "GBP"))
	assert.Equal(t, "CHF 12", Format(12, "CHF"))
}

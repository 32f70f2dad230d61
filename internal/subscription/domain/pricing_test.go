package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalPrice(t *testing.T) {
	assert.Equal(t, int64(4047), FinalPrice(1499, 3, 10))
	assert.Equal(t, int64(7998), FinalPrice(3999, 2, 0))
	assert.Equal(t, int64(0), FinalPrice(799, 4, 100))
}

func TestMonthlyRecurring(t *testing.T) {
	assert.Equal(t, int64(337), MonthlyRecurring(4047))
	assert.Equal(t, int64(67), MonthlyRecurring(799))
	assert.Zero(t, MonthlyRecurring(0))
}

func TestPlanPriceTable(t *testing.T) {
	price, ok := PlanEnterprise.Price()
	assert.True(t, ok)
	assert.Equal(t, int64(3999), price)

	_, ok = Plan("premium").Price()
	assert.False(t, ok)
	assert.False(t, Plan("").Valid())
}

func TestActions(t *testing.T) {
	for _, a := range []Action{ActionCancel, ActionReactivate, ActionUpgrade, ActionDowngrade, ActionMarkPastDue, ActionMarkActive} {
		assert.True(t, a.Valid(), a)
	}
	assert.False(t, Action("pause").Valid())
	assert.False(t, Action("").Valid())

	assert.True(t, ActionUpgrade.RequiresPlan())
	assert.True(t, ActionDowngrade.RequiresPlan())
	assert.False(t, ActionCancel.RequiresPlan())
}

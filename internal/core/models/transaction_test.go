package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/testtube/campus-ledger/internal/core/models"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    models.Status
		to      models.Status
		allowed bool
	}{
		{models.StatusPending, models.StatusConfirmed, true},
		{models.StatusPending, models.StatusFailed, true},
		{models.StatusPending, models.StatusPending, false},
		{models.StatusConfirmed, models.StatusPending, false},
		{models.StatusConfirmed, models.StatusFailed, false},
		{models.StatusConfirmed, models.StatusConfirmed, false},
		{models.StatusFailed, models.StatusPending, false},
		{models.StatusFailed, models.StatusConfirmed, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, models.StatusPending.Terminal())
	assert.True(t, models.StatusConfirmed.Terminal())
	assert.True(t, models.StatusFailed.Terminal())
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, models.CategoryFood.Valid())
	assert.True(t, models.CategoryUncategorized.Valid())
	assert.False(t, models.Category("Groceries").Valid())
	assert.False(t, models.Category("").Valid())
}

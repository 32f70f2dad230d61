package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, float64(0), Counts{}.CompletionRate())
	assert.Equal(t, float64(25), Counts{Total: 4, Completed: 1}.CompletionRate())
	assert.Equal(t, float64(100), Counts{Total: 3, Completed: 3}.CompletionRate())
}

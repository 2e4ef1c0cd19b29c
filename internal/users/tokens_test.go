package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, int64(60), EstimateTokens(40, 200))
	assert.Equal(t, int64(1), EstimateTokens(1, 0))
	assert.Equal(t, int64(1), EstimateTokens(0, 4))
	assert.Equal(t, int64(2), EstimateTokens(5, 0))
	assert.Equal(t, int64(0), EstimateTokens(0, 0))
}

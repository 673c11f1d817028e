package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPayoutPolicy(t *testing.T) {
	policy := DefaultPayoutPolicy()
	require.NoError(t, validatePayoutPolicy(policy))
	assert.Equal(t, 2, policy.MaxAttempts)
	assert.Equal(t, int64(1), policy.MinimumTransferMinorUnits)
}

func TestValidatePayoutPolicy(t *testing.T) {
	assert.Error(t, validatePayoutPolicy(PayoutPolicy{MaxAttempts: 0, MinimumTransferMinorUnits: 1}))
	assert.Error(t, validatePayoutPolicy(PayoutPolicy{MaxAttempts: 2, MinimumTransferMinorUnits: 0}))
	assert.NoError(t, validatePayoutPolicy(PayoutPolicy{MaxAttempts: 1, MinimumTransferMinorUnits: 50}))
}

func TestStaticPayoutPolicyHolder(t *testing.T) {
	policy := PayoutPolicy{MaxAttempts: 5, MinimumTransferMinorUnits: 100}
	holder := NewStaticPayoutPolicyHolder(policy)
	assert.Equal(t, policy, holder.Get())
}

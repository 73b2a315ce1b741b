package principal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "recordshare/pkg/domain"
	dErrors "recordshare/pkg/domain-errors"
)

func TestZeroPrincipalIsUnauthorized(t *testing.T) {
	p := FromContext(context.Background())
	assert.True(t, p.IsZero())

	err := p.Require()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestVerifiedRoundTripsThroughContext(t *testing.T) {
	address := id.MustParseAddress("0xa11ce")
	ctx := WithPrincipal(context.Background(), Verified(address, "jti-1"))

	p := FromContext(ctx)
	require.NoError(t, p.Require())
	assert.Equal(t, address, p.Address())
	assert.Equal(t, "jti-1", p.TokenID())
}

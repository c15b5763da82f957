package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
)

func TestCacheRepositoryWithoutRedis(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest map[string]string

	err := repo.Get(context.Background(), "placement:projection:s1", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.Incr(context.Background(), time.Hour, "k:gen"))
}

func TestDeliveryLedgerWithoutRedisAdmitsClaims(t *testing.T) {
	ledger := NewDeliveryLedgerRepository(nil, 0)
	ok, err := ledger.Claim(context.Background(), "notify:e1:s1:email")
	require.NoError(t, err)
	assert.True(t, ok)
}

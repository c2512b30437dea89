//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"calibra/internal/noncebind/store"
	id "calibra/pkg/domain"
	"calibra/pkg/testutil/containers"
)

type RedisRevocationSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	list  *store.RedisRevocationList
}

func TestRedisRevocationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisRevocationSuite))
}

func (s *RedisRevocationSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.list = store.NewRedisRevocationList(s.redis.Client, time.Hour)
}

func (s *RedisRevocationSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisRevocationSuite) TestMarkThenCheck() {
	ctx := context.Background()
	nonce, err := id.NewNonce()
	s.Require().NoError(err)

	revoked, err := s.list.IsRevoked(ctx, nonce)
	s.Require().NoError(err)
	s.False(revoked, "fresh nonce must not read as revoked")

	s.Require().NoError(s.list.MarkRevoked(ctx, nonce))

	revoked, err = s.list.IsRevoked(ctx, nonce)
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *RedisRevocationSuite) TestMissIsNotAnError() {
	nonce, err := id.NewNonce()
	s.Require().NoError(err)

	revoked, err := s.list.IsRevoked(context.Background(), nonce)
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *RedisRevocationSuite) TestEntriesExpire() {
	ctx := context.Background()
	shortLived := store.NewRedisRevocationList(s.redis.Client, 100*time.Millisecond)

	nonce, err := id.NewNonce()
	s.Require().NoError(err)
	s.Require().NoError(shortLived.MarkRevoked(ctx, nonce))

	s.Eventually(func() bool {
		revoked, err := shortLived.IsRevoked(ctx, nonce)
		return err == nil && !revoked
	}, 2*time.Second, 50*time.Millisecond, "entry should fall out after the ttl")
}

func (s *RedisRevocationSuite) TestMarkIsIdempotent() {
	ctx := context.Background()
	nonce, err := id.NewNonce()
	s.Require().NoError(err)

	s.Require().NoError(s.list.MarkRevoked(ctx, nonce))
	s.Require().NoError(s.list.MarkRevoked(ctx, nonce))

	revoked, err := s.list.IsRevoked(ctx, nonce)
	s.Require().NoError(err)
	s.True(revoked)
}

//go:build integration

package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"safestep/internal/intake/identity"
	"safestep/internal/intake/models"
	"safestep/internal/intake/store"
	"safestep/internal/intake/store/memory"
	"safestep/pkg/domain"
	"safestep/pkg/platform/sentinel"
	"safestep/pkg/testutil/containers"
)

type CachedResolverSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *memory.Store
	cache *identity.CachedResolver
}

func TestCachedResolverSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedResolverSuite))
}

func (s *CachedResolverSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *CachedResolverSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.store = memory.New()
	next := identity.NewResolver(s.store, "emergency_contacts", "email_index", models.AttrEmail)
	s.cache = identity.NewCachedResolver(next, s.redis.Client, time.Minute, zap.NewNop())
}

func (s *CachedResolverSuite) TestHitIsServedFromRedis() {
	ctx := context.Background()
	ecid := domain.NewECID()
	s.store.Put("emergency_contacts", store.Item{models.AttrECID: ecid.String(), models.AttrEmail: "ann@example.com"})

	got, err := s.cache.Resolve(ctx, "Ann@Example.com")
	s.Require().NoError(err)
	s.Equal(ecid, got)

	ttl, err := s.redis.Client.TTL(ctx, "ec:id:email:ann@example.com").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *CachedResolverSuite) TestRememberedContactResolvesWithoutStore() {
	ctx := context.Background()
	ecid := domain.NewECID()
	s.cache.Remember(ctx, "new@example.com", ecid)

	got, err := s.cache.Resolve(ctx, "new@example.com")
	s.Require().NoError(err)
	s.Equal(ecid, got)
}

func (s *CachedResolverSuite) TestMissStaysUncached() {
	ctx := context.Background()
	_, err := s.cache.Resolve(ctx, "nobody@example.com")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	n, err := s.redis.Client.Exists(ctx, "ec:id:email:nobody@example.com").Result()
	s.Require().NoError(err)
	s.Zero(n)
}

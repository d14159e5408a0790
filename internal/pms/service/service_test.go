package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/blob"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/cache"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/notify"
	"github.com/pratyush-pilli/cimventory-sub000/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	ctx   context.Context
	db    *gorm.DB
	repos *repository.Repositories
	svc   *Services
	rec   *notify.Recorder
	blobs *blob.MemoryStore
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, nil)
}

// setupWithRedis backs the service cache with an in-process redis so TTL
// driven behaviour can be observed and fast-forwarded.
func setupWithRedis(t *testing.T) (*fixture, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return newFixture(t, cache.New(rdb, nil, cache.DefaultTTLs())), mr
}

func newFixture(t *testing.T, c *cache.Cache) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	rec := &notify.Recorder{}
	blobs := blob.NewMemoryStore()
	repos := repository.NewRepositories(db)
	return &fixture{
		ctx:   context.Background(),
		db:    db,
		repos: repos,
		svc:   NewServices(Deps{DB: db, Repos: repos, Cache: c, Blobs: blobs, Publisher: rec}),
		rec:   rec,
		blobs: blobs,
	}
}

func (f *fixture) seedInventory(t *testing.T, itemNo string, stock map[string]int) *entity.Inventory {
	t.Helper()
	inv := &entity.Inventory{ItemNo: itemNo, Description: itemNo + " part", Make: "Generic"}
	for loc, q := range stock {
		require.NoError(t, inv.AddStock(loc, q))
	}
	inv.Recompute(0)
	require.NoError(t, f.repos.Inventory.Create(f.ctx, inv))
	return inv
}

func (f *fixture) inventory(t *testing.T, id string) *entity.Inventory {
	t.Helper()
	inv, err := f.svc.Inventory.GetInventory(f.ctx, id)
	require.NoError(t, err)
	return inv
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "unexpected error: %v", err)
}

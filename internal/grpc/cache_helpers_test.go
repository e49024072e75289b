package grpc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/godilite/exam-blueprint/internal/grpc/mocks"
)

func TestAddTTLJitter(t *testing.T) {
	assert.Equal(t, time.Duration(0), addTTLJitter(0))
	assert.Equal(t, 10*time.Second, addTTLJitter(10*time.Second))

	for range 100 {
		got := addTTLJitter(10 * time.Minute)
		assert.GreaterOrEqual(t, got, 10*time.Minute-maxTTLJitter)
		assert.Less(t, got, 10*time.Minute+maxTTLJitter)
	}
}

func TestFindAndCache_SingleflightCollapsesMisses(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := &mocks.MockCacher{}
	var sf singleflight.Group

	fetch := func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := FindAndCache(context.Background(), c, &sf, "k", time.Minute, zap.NewNop(), fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []int{7, 7, 7, 7, 7}, results)
	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestFindAndCache_FetchError(t *testing.T) {
	var sf singleflight.Group
	c := &mocks.MockCacher{
		SetFunc: func(ctx context.Context, key string, value any, expiration time.Duration) error {
			t.Error("failed fetches must not be cached")
			return nil
		},
	}

	_, err := FindAndCache(context.Background(), c, &sf, "k", time.Minute, nil, func(ctx context.Context) (string, error) {
		return "", errors.New("boom")
	})
	require.EqualError(t, err, "boom")
}

func TestFindAndCache_HitSkipsFetch(t *testing.T) {
	var sf singleflight.Group
	c := &mocks.MockCacher{
		GetFunc: func(ctx context.Context, key string, dest any) error {
			*(dest.(*string)) = "cached"
			return nil
		},
		SetFunc: func(ctx context.Context, key string, value any, expiration time.Duration) error {
			t.Error("hits must not rewrite the cache")
			return nil
		},
	}

	v, err := FindAndCache(context.Background(), c, &sf, "k", time.Minute, zap.NewNop(), func(ctx context.Context) (string, error) {
		t.Error("hits must not fetch")
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached", v)
}

func TestFindAndCache_MissStoresBeforeReturning(t *testing.T) {
	var sf singleflight.Group
	var stored []string
	c := &mocks.MockCacher{
		SetFunc: func(ctx context.Context, key string, value any, expiration time.Duration) error {
			stored = append(stored, key)
			assert.Equal(t, "fresh", value)
			return nil
		},
	}

	v, err := FindAndCache(context.Background(), c, &sf, "k", time.Minute, zap.NewNop(), func(ctx context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, []string{"k"}, stored)
}

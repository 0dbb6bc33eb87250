package echarts

import (
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-querydash/components/dashboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStoresEntry(t *testing.T) {
	cache := NewCache(time.Minute)
	calls := 0
	render := func() (string, error) {
		calls++
		return "html", nil
	}

	val1, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	val2, err := cache.GetOrRender("key", render)
	require.NoError(t, err)

	assert.Equal(t, "html", val1)
	assert.Equal(t, val1, val2)
	assert.Equal(t, 1, calls)
}

func TestCacheExpires(t *testing.T) {
	now := time.Unix(0, 0)
	cache := NewCache(time.Second)
	cache.now = func() time.Time { return now }
	calls := 0
	render := func() (string, error) {
		calls++
		return "fresh", nil
	}

	_, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	now = now.Add(2 * time.Second)
	_, err = cache.GetOrRender("key", render)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	now = now.Add(2 * time.Second)
	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	cache := NewCache(time.Minute)
	_, err := cache.GetOrRender("key", func() (string, error) { return "", errors.New("boom") })
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestChartKeyChangesWithData(t *testing.T) {
	a := dashboard.RenderableChart{ID: "c", Type: dashboard.ChartPie, Slices: []dashboard.PieSlice{{Name: "x", Value: 1}}}
	b := a
	b.Slices = []dashboard.PieSlice{{Name: "x", Value: 2}}
	assert.NotEqual(t, chartKey(a, "westeros"), chartKey(b, "westeros"))
	assert.Equal(t, chartKey(a, "westeros"), chartKey(a, "westeros"))
	assert.NotEqual(t, chartKey(a, "westeros"), chartKey(a, "dark"))
}

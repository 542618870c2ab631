package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	r := New[string, int]()
	assert.Equal(t, 0, r.Len())

	r.Register("one", 1)
	r.Register("two", 2)
	r.Register("two", 22)

	v, ok := r.Get("two")
	assert.True(t, ok)
	assert.Equal(t, 22, v)

	v, ok = r.Get("three")
	assert.False(t, ok)
	assert.Equal(t, 0, v)
	assert.True(t, r.Has("one"))
	assert.Equal(t, 2, r.Len())
}

func TestAdd(t *testing.T) {
	r := New[string, int]()
	require.NoError(t, r.Add("range", 1))

	err := r.Add("range", 2)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.ErrorContains(t, err, "range")
	assert.Equal(t, 1, r.MustGet("range"))
}

func TestLookup(t *testing.T) {
	r := New[string, int]()
	r.RegisterMany(map[string]int{"values": 2, "range": 1})

	v, err := r.Lookup("range")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = r.Lookup("rnge")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, `registry: not found: "rnge" (known: range, values)`)
}

func TestMustGet_Panics(t *testing.T) {
	r := New[string, int]()
	assert.PanicsWithValue(t, `registry: not found: "missing" (known: )`, func() {
		r.MustGet("missing")
	})
}

func TestKeysAndRange_Ordered(t *testing.T) {
	r := New[string, int]()
	for i, k := range []string{"sink", "filter", "source", "join"} {
		r.Register(k, i)
	}
	assert.Equal(t, []string{"filter", "join", "sink", "source"}, r.Keys())

	var seen []string
	r.Range(func(k string, _ int) bool {
		seen = append(seen, k)
		r.Delete(k) // mutating during Range is allowed
		return k != "join"
	})
	assert.Equal(t, []string{"filter", "join"}, seen)
	assert.Equal(t, []string{"sink", "source"}, r.Keys())
}

func TestGetOrCreate_Concurrent(t *testing.T) {
	r := New[int, *int]()
	var calls atomic.Int32

	var wg sync.WaitGroup
	results := make([]*int, 50)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.GetOrCreate(7, func() *int {
				calls.Add(1)
				v := 7
				return &v
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, p := range results {
		assert.Same(t, results[0], p)
	}
}

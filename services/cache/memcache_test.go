package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211", 200*time.Millisecond)

	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	err := mc.Set("dealfinder_test_key", []byte("test_value"), 1*time.Second)
	assert.NoError(t, err)

	value, err := mc.Get("dealfinder_test_key")
	assert.NoError(t, err)
	assert.Equal(t, "test_value", string(value))

	assert.NoError(t, mc.Delete("dealfinder_test_key"))
	assert.NoError(t, mc.Delete("dealfinder_test_key"))

	_, err = mc.Get("dealfinder_test_key")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCache(t *testing.T) {
	mc := NewMemoryCache()

	assert.NoError(t, mc.Set("block", []byte("60"), 30*time.Millisecond))
	assert.NoError(t, mc.Set("forever", []byte("x"), 0))

	value, err := mc.Get("block")
	assert.NoError(t, err)
	assert.Equal(t, "60", string(value))

	require.Eventually(t, func() bool {
		_, err := mc.Get("block")
		return errors.Is(err, ErrMiss)
	}, time.Second, 5*time.Millisecond)

	_, err = mc.Get("forever")
	assert.NoError(t, err)

	assert.NoError(t, mc.Delete("forever"))
	_, err = mc.Get("forever")
	assert.ErrorIs(t, err, ErrMiss)

	_, err = mc.Get("absent")
	assert.ErrorIs(t, err, ErrMiss)
}

package publisher

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher_StreamForIsStable(t *testing.T) {
	publisher := NewRedisPublisher("localhost:6379", 0, "deals", 4, 100)
	defer publisher.Close()

	first := publisher.StreamFor("Best Buy")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, publisher.StreamFor("Best Buy"))
	}
	assert.True(t, strings.HasPrefix(first, "deals:"))

	single := NewRedisPublisher("localhost:6379", 0, "deals", 0, 100)
	defer single.Close()
	assert.Equal(t, "deals:0", single.StreamFor("anything"))
}

// This test requires a running Redis instance
// If Redis is not available, the test will be skipped
func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	publisher := NewRedisPublisher("localhost:6379", 0, "test_stream_deals", 1, 10)
	defer publisher.Close()

	if err := publisher.Ping(ctx); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	stream := publisher.StreamFor("Shop")
	err := client.XGroupCreateMkStream(ctx, stream, "test_group", "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		require.NoError(t, err)
	}

	messages := make(chan map[string]interface{}, 1)
	go func() {
		result, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Streams:  []string{stream, ">"},
			Group:    "test_group",
			Consumer: "test_consumer",
			Block:    time.Second,
		}).Result()
		if assert.NoError(t, err) {
			messages <- result[0].Messages[0].Values
		}
	}()

	time.Sleep(100 * time.Millisecond)

	err = publisher.Publish(ctx, "Shop", []byte("test_message"))
	assert.NoError(t, err)

	select {
	case values := <-messages:
		// The message should be base64 encoded
		assert.Equal(t, "dGVzdF9tZXNzYWdl", values[MessageField])
		assert.Equal(t, "Shop", values["key"])
	case <-time.After(2 * time.Second):
		t.Error("Timed out waiting for message")
	}

	for i := 0; i < 20; i++ {
		require.NoError(t, publisher.Publish(ctx, "Shop", []byte("filler")))
	}
	require.NoError(t, publisher.TrimStreams(ctx))
	length, err := client.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, length, int64(10))
}

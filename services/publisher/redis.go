package publisher

import (
	"context"
	"encoding/base64"
	"hash/fnv"
	"strconv"

	"github.com/redis/go-redis/v9"

	dealerrors "sjsage522/dealfinder/pkg/errors"
)

// MessageField is the stream entry field holding the base64 encoded deal JSON
const MessageField = "b64_deal"

// RedisPublisher implements Publisher using Redis streams
type RedisPublisher struct {
	client          *redis.Client
	streamPrefix    string
	streamCount     int
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if streamCount <= 0 {
		streamCount = 1
	}

	return &RedisPublisher{
		client:          client,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
	}
}

// Ping checks the Redis connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// StreamFor returns the stream shard for key. The same key always maps to the same
// shard, so one retailer's deals stay ordered.
func (p *RedisPublisher) StreamFor(key string) string {
	h := fnv.New32a()
	h.Write([]byte(key))
	return p.streamPrefix + ":" + strconv.Itoa(int(h.Sum32()%uint32(p.streamCount)))
}

// Publish publishes a message to a Redis stream.
// The message is base64 encoded before publishing.
func (p *RedisPublisher) Publish(ctx context.Context, key string, message []byte) error {
	encodedMessage := base64.StdEncoding.EncodeToString(message)

	args := &redis.XAddArgs{
		Stream: p.StreamFor(key),
		Values: map[string]interface{}{
			"key":        key,
			MessageField: encodedMessage,
		},
	}
	if p.streamMaxLength > 0 {
		args.MaxLen = int64(p.streamMaxLength)
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return dealerrors.NewPublisher(key, "xadd failed", err)
	}
	return nil
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}

	iter := p.client.Scan(ctx, 0, p.streamPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		stream := iter.Val()
		if err := p.client.XTrimMaxLen(ctx, stream, int64(p.streamMaxLength)).Err(); err != nil {
			return dealerrors.NewPublisher(stream, "xtrim failed", err)
		}
	}
	if err := iter.Err(); err != nil {
		return dealerrors.NewPublisher(p.streamPrefix, "scan failed", err)
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

var _ Publisher = (*RedisPublisher)(nil)

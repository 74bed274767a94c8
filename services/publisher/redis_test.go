package publisher

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// This test requires a running Redis instance
// If Redis is not available, the test will be skipped
func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	publisher := NewRedisPublisher(ctx, "localhost:6379", 0, "test_lot_stream", 1, 100)
	defer publisher.Close()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	// With a stream count of one every publish lands on :0
	stream := "test_lot_stream:0"
	err := client.XGroupCreateMkStream(ctx, stream, "test_group", "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		t.Fatal(err)
	}

	messages := make(chan string, 1)

	go func() {
		result, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Streams:  []string{stream, ">"},
			Group:    "test_group",
			Consumer: "test_consumer",
			Block:    0,
		}).Result()
		if err != nil {
			return
		}
		messages <- result[0].Messages[0].Values["lot"].(string)
	}()

	time.Sleep(100 * time.Millisecond)

	record := []byte(`{"title":"Bordeaux Grand Cru Collection 1998","current_price":"€120"}`)
	assert.NoError(t, publisher.Publish("lot", record))

	select {
	case msg := <-messages:
		// The payload travels base64 encoded
		assert.Equal(t, base64.StdEncoding.EncodeToString(record), msg)
	case <-time.After(1 * time.Second):
		t.Error("Timed out waiting for message")
	}

	assert.NoError(t, publisher.TrimStreams())
}

package events

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), ChannelRepairs, Event{Type: TypeRepairStatusChanged}))
}

func TestRedisPublisher_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	err := NewRedisPublisher(client).Publish(context.Background(), ChannelRepairs, Event{Type: TypePayoutReleased, EntityID: 1})
	require.Error(t, err)
}

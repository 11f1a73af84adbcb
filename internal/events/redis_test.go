package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steemit/discussion/internal/discussion"
	"github.com/steemit/discussion/internal/models"
)

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, ChannelCommentPosted, ChannelFlagEscalated)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisPublisher(client)
	target := models.PolymorphicRef{EntityType: "article", EntityID: "7"}
	require.NoError(t, pub.CommentPosted(ctx, discussion.CommentPostedEvent{
		Comment:   models.Comment{ID: 3, TargetType: "article", TargetID: "7"},
		Target:    target,
		Followers: []string{"alice"},
	}))
	require.NoError(t, pub.FlagEscalated(ctx, discussion.FlagEscalatedEvent{CommentID: 3, Count: 10, Threshold: 10}))

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	msg, err := sub.ReceiveMessage(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, ChannelCommentPosted, msg.Channel)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
	assert.Equal(t, "comment_posted", env.Type)

	var posted discussion.CommentPostedEvent
	require.NoError(t, json.Unmarshal(env.Payload, &posted))
	assert.Equal(t, target, posted.Target)
	assert.Equal(t, []string{"alice"}, posted.Followers)

	msg, err = sub.ReceiveMessage(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, ChannelFlagEscalated, msg.Channel)
}

func TestRedisPublisher_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	err := NewRedisPublisher(client).FlagEscalated(context.Background(), discussion.FlagEscalatedEvent{CommentID: 1})
	assert.Error(t, err)
}

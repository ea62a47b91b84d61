package gameserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/orbitwar/internal/snapshot"
)

func TestBroadcaster_Broadcast(t *testing.T) {
	codec, err := snapshot.NewCodec(snapshot.CodecJSON)
	require.NoError(t, err)

	cm := NewClientManager()
	fast := newQueueClient(1, 4)
	slow := newQueueClient(2, 1)
	cm.Register(fast)
	cm.Register(slow)
	b := NewBroadcaster(cm, codec)

	b.Broadcast(&snapshot.Snapshot{Tick: 1})
	b.Broadcast(&snapshot.Snapshot{Tick: 2})

	assert.Len(t, fast.sendCh, 2)
	assert.Len(t, slow.sendCh, 1)
	assert.Equal(t, uint64(3), b.Sent())
	assert.Equal(t, uint64(1), b.Dropped())

	msg, err := codec.Decode(<-fast.sendCh)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), msg.Snapshot.Tick)
}

func TestBroadcaster_NoClientsSkipsEncoding(t *testing.T) {
	codec, err := snapshot.NewCodec(snapshot.CodecMsgpack)
	require.NoError(t, err)
	b := NewBroadcaster(NewClientManager(), codec)

	b.Broadcast(&snapshot.Snapshot{Tick: 1})
	assert.Zero(t, b.Sent())
	assert.Zero(t, b.Dropped())
}

package notify

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNNGPublishSubscribe(t *testing.T) {
	addr := fmt.Sprintf("inproc://notify-%d", time.Now().UnixNano())

	p, err := NewNNGPublisher(addr, nil)
	require.NoError(t, err)
	defer p.Close()

	s, err := DialNNGSubscriber(addr, LevelError)
	require.NoError(t, err)
	defer s.Close()

	// PUB drops frames until the subscription is established, so keep
	// publishing until the first one arrives.
	var got Notification
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		p.NotifySuccess("filtered out")
		p.NotifyError("edge e1 rejected")
		got, err = s.Recv(50 * time.Millisecond)
		if err == nil {
			break
		}
		require.ErrorIs(t, err, ErrTimeout)
	}
	require.NoError(t, err)
	assert.Equal(t, LevelError, got.Level)
	assert.Equal(t, "edge e1 rejected", got.Message)
	assert.False(t, got.Time.IsZero())
}

func TestNNGPublisherClose(t *testing.T) {
	addr := fmt.Sprintf("inproc://notify-close-%d", time.Now().UnixNano())
	p, err := NewNNGPublisher(addr, nil)
	require.NoError(t, err)
	assert.Equal(t, addr, p.Addr())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	p.NotifyError("after close") // must not panic
}

func TestDecodeFrame(t *testing.T) {
	n, err := decodeFrame([]byte(`NOTIFY:success:{"level":"success","message":"ok","time":"2026-01-02T03:04:05Z"}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", n.Message)

	for _, frame := range []string{"WAL:x", "NOTIFY:nolevel", `NOTIFY:error:{bad`} {
		_, err := decodeFrame([]byte(frame))
		assert.Error(t, err, frame)
	}
	assert.False(t, errors.Is(err, ErrTimeout))
}

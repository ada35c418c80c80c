package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPerIP(t *testing.T) {
	l := New(1, 1, 100, time.Hour)

	require.True(t, l.Allow("1.2.3.4"))
	require.False(t, l.Allow("1.2.3.4"))
	require.True(t, l.Allow("5.6.7.8"))
}

func TestPerIP_IdleEntriesExpire(t *testing.T) {
	l := New(1, 1, 10, 20*time.Millisecond)

	require.True(t, l.Allow("127.0.0.1"))
	require.False(t, l.Allow("127.0.0.1"))

	time.Sleep(50 * time.Millisecond)
	require.True(t, l.Allow("127.0.0.1"))
}

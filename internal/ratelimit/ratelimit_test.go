package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllow_AllowsBurstThenRejects(t *testing.T) {
	l := New(3600) // 1 req/sec, burst 3600

	for i := 0; i < 3600; i++ {
		assert.True(t, l.Allow("client-a"), "request %d within burst should be allowed", i)
	}
	assert.False(t, l.Allow("client-a"), "the bucket should be exhausted after burst requests")
}

func TestAllow_TracksClientsIndependently(t *testing.T) {
	l := New(1)

	assert.True(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-b"), "a different client key gets its own bucket")
}

func TestNew_DefaultsToOneThousandPerHourWhenNonPositive(t *testing.T) {
	l := New(0)
	assert.Equal(t, 1000, l.burst)
}

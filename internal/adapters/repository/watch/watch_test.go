package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishAndCancel(t *testing.T) {
	hub := NewHub[int]()

	var a, b []int
	cancelA := hub.Subscribe(func(v int) { a = append(a, v) })
	cancelB := hub.Subscribe(func(v int) { b = append(b, v) })

	require.Equal(t, 2, hub.Len())

	hub.Publish(1)
	hub.Publish(2)

	assert.Equal(t, []int{1, 2}, a)
	assert.Equal(t, []int{1, 2}, b)

	cancelA()
	hub.Publish(3)

	assert.Equal(t, []int{1, 2}, a)
	assert.Equal(t, []int{1, 2, 3}, b)
	assert.Equal(t, 1, hub.Len())

	// Cancelling twice is harmless.
	cancelA()
	cancelB()
	assert.Equal(t, 0, hub.Len())
}

func TestHubPublishWithNoSubscribers(t *testing.T) {
	hub := NewHub[string]()
	assert.NotPanics(t, func() { hub.Publish("nobody home") })
}

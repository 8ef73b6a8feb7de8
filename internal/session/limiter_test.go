package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindowPrunesExactlyOneMinute(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	w := newSlidingWindow(clock.Now)
	limit := 2

	assert.True(t, w.allow(&limit))
	clock.Advance(30 * time.Second)
	assert.True(t, w.allow(&limit))
	assert.False(t, w.allow(&limit))

	clock.Advance(30 * time.Second)
	assert.True(t, w.allow(&limit), "first send leaves the window after 60s")
	assert.False(t, w.allow(&limit))
	assert.Equal(t, 2, w.count())
}

func TestSlidingWindowRejectionsAreNotRecorded(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	w := newSlidingWindow(clock.Now)
	limit := 1

	assert.True(t, w.allow(&limit))
	for i := 0; i < 5; i++ {
		assert.False(t, w.allow(&limit))
	}
	assert.Equal(t, 1, w.count())
}

func TestSlidingWindowNilLimit(t *testing.T) {
	w := newSlidingWindow(nil)
	for i := 0; i < 10; i++ {
		assert.True(t, w.allow(nil))
	}
	assert.Equal(t, 10, w.count())
}

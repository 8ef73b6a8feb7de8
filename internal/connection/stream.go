package connection

import (
	"log/slog"
	"sync"
)

const streamBuffer = 64

// Stream fans events out to every subscriber in publish order. A subscriber
// that falls a full buffer behind loses events rather than stalling the
// read loop. A latest stream drops the oldest buffered event instead, so the
// most recent one always reaches the subscriber.
type Stream[T any] struct {
	name   string
	logger *slog.Logger
	latest bool

	mu     sync.RWMutex
	subs   map[int]chan T
	nextID int
	closed bool
}

func newStream[T any](name string, logger *slog.Logger) *Stream[T] {
	return &Stream[T]{name: name, logger: logger, subs: make(map[int]chan T)}
}

func newLatestStream[T any](name string, logger *slog.Logger) *Stream[T] {
	s := newStream[T](name, logger)
	s.latest = true
	return s
}

// Subscribe registers a new subscriber. The returned cancel function
// unregisters it and closes the channel.
func (s *Stream[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, streamBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Stream[T]) publish(v T) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, ch := range s.subs {
		if s.latest {
			s.replaceOldest(id, ch, v)
			continue
		}
		select {
		case ch <- v:
		default:
			s.logger.Warn("dropping event for slow subscriber", "stream", s.name, "subscriber", id)
		}
	}
}

func (s *Stream[T]) replaceOldest(id int, ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
			s.logger.Warn("dropping oldest event for slow subscriber", "stream", s.name, "subscriber", id)
		default:
		}
	}
}

func (s *Stream[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// Package relay implements the real-time broadcast layer: websocket
// connections grouped into per-conversation rooms, with fan-out
// traversing a pluggable transport so multiple relay instances
// converge on the same broadcasts.
//
// The subscribe event performs no authorization check: any connection
// may join any conversation's room by presenting its id. Room ids are
// UUIDs, which is obscurity, not access control.
package relay

import (
	"strings"
	"sync"
)

// Transport moves broadcast frames between relay instances. Publish
// sends a frame to a subject; Subscribe registers a handler for a
// subject pattern, where a trailing ">" matches any suffix.
type Transport interface {
	Publish(subject string, data []byte) error
	Subscribe(pattern string, handler func(subject string, data []byte)) (func() error, error)
}

// LocalTransport is an in-process Transport: published frames loop
// straight back to matching subscribers. It backs tests and
// single-instance deployments without a broker.
type LocalTransport struct {
	mu   sync.RWMutex
	subs []localSub
}

type localSub struct {
	pattern string
	handler func(subject string, data []byte)
}

// NewLocalTransport creates an in-process transport.
func NewLocalTransport() *LocalTransport {
	return &LocalTransport{}
}

// Publish delivers the frame synchronously to every matching
// subscriber.
func (t *LocalTransport) Publish(subject string, data []byte) error {
	t.mu.RLock()
	subs := make([]localSub, len(t.subs))
	copy(subs, t.subs)
	t.mu.RUnlock()

	for _, sub := range subs {
		if matchSubject(sub.pattern, subject) {
			sub.handler(subject, data)
		}
	}
	return nil
}

// Subscribe registers a handler. The returned function removes it.
func (t *LocalTransport) Subscribe(pattern string, handler func(subject string, data []byte)) (func() error, error) {
	t.mu.Lock()
	t.subs = append(t.subs, localSub{pattern: pattern, handler: handler})
	index := len(t.subs) - 1
	t.mu.Unlock()

	return func() error {
		t.mu.Lock()
		defer t.mu.Unlock()
		if index < len(t.subs) {
			t.subs[index].handler = func(string, []byte) {}
		}
		return nil
	}, nil
}

func matchSubject(pattern, subject string) bool {
	if pattern == subject {
		return true
	}
	if strings.HasSuffix(pattern, ".>") {
		return strings.HasPrefix(subject, strings.TrimSuffix(pattern, ">"))
	}
	return false
}

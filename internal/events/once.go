// Package events carries values between page components with delivery
// guarantees enforced by the type.
package events

import (
	"errors"
	"sync"
)

// ErrAlreadyPublished is returned by a second Publish on the same Once.
var ErrAlreadyPublished = errors.New("event already published")

// Once is a channel that carries exactly one value. Every subscriber is
// invoked exactly once with it, including subscribers that register after
// the value was published.
type Once[T any] struct {
	mu        sync.Mutex
	published bool
	value     T
	handlers  []func(T)
	done      chan struct{}
}

// NewOnce returns an unpublished channel.
func NewOnce[T any]() *Once[T] {
	return &Once[T]{done: make(chan struct{})}
}

// Subscribe registers fn. If the value is already available fn runs
// immediately on the calling goroutine.
func (o *Once[T]) Subscribe(fn func(T)) {
	o.mu.Lock()
	if !o.published {
		o.handlers = append(o.handlers, fn)
		o.mu.Unlock()
		return
	}
	v := o.value
	o.mu.Unlock()
	fn(v)
}

// Publish delivers v to every subscriber on the calling goroutine and
// releases Wait. Only the first call succeeds.
func (o *Once[T]) Publish(v T) error {
	o.mu.Lock()
	if o.published {
		o.mu.Unlock()
		return ErrAlreadyPublished
	}
	o.published = true
	o.value = v
	handlers := o.handlers
	o.handlers = nil
	o.mu.Unlock()

	for _, fn := range handlers {
		fn(v)
	}
	close(o.done)
	return nil
}

// Done is closed once the value is published and every subscriber known at
// publish time has returned.
func (o *Once[T]) Done() <-chan struct{} {
	return o.done
}

// Value returns the published value and whether it is available.
func (o *Once[T]) Value() (T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value, o.published
}

// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package output

import (
	"errors"
	"io"
	"sync"
)

// Subscriber consumes observations.
// Subscribers implement rendering or storage for one output format
// (text lines, JSON, SQLite, telemetry).
type Subscriber interface {
	// Handle processes an observation.
	// Called synchronously by Stream.Emit().
	Handle(obs Observation)

	// Name returns a unique identifier for this subscriber.
	Name() string

	// ShouldHandle decides if this subscriber cares about this observation.
	ShouldHandle(obs Observation) bool
}

// Stream is a minimal, synchronous observation dispatcher.
// Subscribers are called in registration order so stdout stays ordered.
type Stream struct {
	subscribers []Subscriber
	mu          sync.RWMutex
}

// NewStream creates a stream with no subscribers.
func NewStream() *Stream {
	return &Stream{
		subscribers: make([]Subscriber, 0, 4),
	}
}

// Subscribe registers a new subscriber to receive observations.
// Thread-safe.
func (s *Stream) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, sub)
}

// Emit dispatches obs to all subscribers whose ShouldHandle accepts it.
// Thread-safe for concurrent emissions.
func (s *Stream) Emit(obs Observation) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscribers {
		if sub.ShouldHandle(obs) {
			sub.Handle(obs)
		}
	}
}

// SubscriberCount returns the number of registered subscribers.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Close closes every subscriber implementing io.Closer and drops them all.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, sub := range s.subscribers {
		if c, ok := sub.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	s.subscribers = s.subscribers[:0]
	return errors.Join(errs...)
}

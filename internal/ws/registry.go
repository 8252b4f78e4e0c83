package ws

import "sync/atomic"

// Registry counts active stream connections. Explicitly constructed and
// injected from the composition root; shared by both stream endpoints.
type Registry struct {
	count atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a connection and returns the new total.
func (r *Registry) Add() int64 {
	return r.count.Add(1)
}

// Remove deregisters a connection and returns the new total.
func (r *Registry) Remove() int64 {
	return r.count.Add(-1)
}

// Count returns the number of active connections.
func (r *Registry) Count() int64 {
	return r.count.Load()
}

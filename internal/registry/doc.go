// Package registry owns the task registry.
//
// Ownership boundary:
// - the name -> task map
// - the owner goroutine that applies every mutation
//
// Connection workers never hold the map. They hand finished tasks to
// Owner.Submit and keep decoding.
package registry

// Package runner owns the task-registration daemon.
//
// Ownership boundary:
// - unix socket listener and accept loop
// - bounded connection worker pool
// - wiring decoded tasks into the registry owner
//
// Lifecycle order:
// - listen -> owner -> status -> serve
//
// Decode errors end only the connection that produced them. Only a failure
// to bind the task socket stops the daemon.
package runner

// Package protocol owns the task-registration wire contract.
//
// Ownership boundary:
// - decode states shared by frame and record
// - error kinds surfaced to connection workers
//
// Subpackages:
// - frame: delimiter-terminated field reads
// - record: task record state machine, decoder and encoder
package protocol

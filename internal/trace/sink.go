// Package trace records scheduler status events to the console, CSV files
// and SQLite databases.
package trace

import "wrrsched/internal/sched"

// Sink persists or displays status events.
type Sink interface {
	Write(ev sched.StatusEvent) error
	Close() error
}

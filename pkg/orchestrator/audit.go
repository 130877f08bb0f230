package orchestrator

import (
	"time"

	"github.com/virtualsquare/iothconf-go/pkg/storage"
)

// Audit records the outcome of directive runs in a BoltDB-backed log.
type Audit struct {
	store *storage.Storage
}

// OpenAudit opens (or creates) the audit log at path. Passing "" or
// "disabled" yields a no-op Audit whose Record/History calls are safe but
// inert, matching storage.Open's own sentinel.
func OpenAudit(path string) *Audit {
	s, err := storage.Open(path)
	if err != nil {
		return &Audit{}
	}
	return &Audit{store: s}
}

// Close releases the underlying database handle.
func (a *Audit) Close() error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close()
}

// Record appends one directive run's outcome to the log.
func (a *Audit) Record(iface, directive string, started time.Time, applied Flags, runErr error) {
	if a == nil || a.store == nil {
		return
	}
	rec := storage.RunRecord{
		StartedAt: started,
		Duration:  time.Since(started),
		Interface: iface,
		Directive: directive,
		Acquired:  flagsString(applied),
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	_ = a.store.AddRun(rec)
}

// History returns the most recent directive run records, newest first.
func (a *Audit) History(limit int) ([]storage.RunRecord, error) {
	if a == nil || a.store == nil {
		return nil, nil
	}
	return a.store.ListRuns(limit)
}

// Package widget is a read-only snapshot consumer: it loads the snapshot
// the main process exports and derives what is happening right now.
package widget

import (
	"time"

	"github.com/starford/classdeck/internal/snapshot"
	"github.com/starford/classdeck/internal/storage"
	"github.com/starford/classdeck/internal/timing"
)

// Status of a load.
type Status string

// Load statuses. StatusOK with no entries is a day without classes;
// StatusNoData means the snapshot is missing or unreadable.
const (
	StatusOK     Status = "ok"
	StatusNoData Status = "no_data"
)

// LoadResult is what a consumer knows after reading the snapshot.
type LoadResult struct {
	Status  Status           `json:"status"`
	Entries []snapshot.Entry `json:"entries"`
	// GeneratedAt is the snapshot file's modification time.
	GeneratedAt time.Time `json:"generatedAt,omitzero"`
	Date        string    `json:"date,omitempty"`
	TimingTable string    `json:"timingTable,omitempty"`
	Legacy      bool      `json:"legacy"`
	Err         string    `json:"error,omitempty"`
}

// Load reads and decodes the snapshot name from src. It never fails: any
// read or decode problem yields StatusNoData with zero entries.
func Load(src storage.Provider, name string) LoadResult {
	data, meta, err := src.ReadMeta(name)
	if err != nil {
		return LoadResult{Status: StatusNoData, Entries: []snapshot.Entry{}, Err: err.Error()}
	}
	doc, err := snapshot.Decode(data)
	if err != nil {
		return LoadResult{Status: StatusNoData, Entries: []snapshot.Entry{}, Err: err.Error()}
	}
	return LoadResult{
		Status:      StatusOK,
		Entries:     doc.Entries,
		GeneratedAt: meta.UpdatedAt,
		Date:        doc.Date,
		TimingTable: doc.TimingTable,
		Legacy:      doc.Legacy(),
	}
}

// StaleAt reports whether the snapshot describes a day other than now's
// calendar day in f's zone. Legacy snapshots carry no date, so their
// modification time stands in. A missing snapshot is never stale.
func (l LoadResult) StaleAt(f *timing.Formatter, now time.Time) bool {
	date := l.Date
	if date == "" && !l.GeneratedAt.IsZero() {
		date = f.Date(l.GeneratedAt)
	}
	return date != "" && date != f.Date(now)
}

// Package snapshot defines the exchange format of today's schedule between
// the exporter and its read-only consumers.
//
// Two encodings are understood. The versioned document
//
//	{"version":1,"date":"2026-10-19","generatedAt":"...","timingTable":"<sha256>","entries":[...]}
//
// is written by default. The legacy encoding is a bare JSON array of
// entries. Decode accepts both.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/classdeck/internal/apperr"
	"github.com/starford/classdeck/internal/models"
)

// Version is the document version written by Encode.
const Version = 1

// DefaultFilename is the snapshot file inside the shared container.
const DefaultFilename = "today.json"

// Entry is one class of the day as seen by consumers.
type Entry struct {
	Name        string `json:"name"`
	Teacher     string `json:"teacher"`
	Location    string `json:"location"`
	PeriodIndex int    `json:"periodIndex"`
	PeriodSpan  int    `json:"periodSpan"`
	ColorTag    string `json:"colorTag"`
}

// FromCourse flattens a course into an entry.
func FromCourse(c models.Course) Entry {
	return Entry{
		Name:        c.Name,
		Teacher:     c.Teacher,
		Location:    c.Location,
		PeriodIndex: c.Period,
		PeriodSpan:  c.Span,
		ColorTag:    c.Color,
	}
}

// Document is the versioned snapshot.
type Document struct {
	Version     int       `json:"version"`
	Date        string    `json:"date"`
	GeneratedAt time.Time `json:"generatedAt"`
	TimingTable string    `json:"timingTable"`
	Entries     []Entry   `json:"entries"`
}

// Legacy reports whether the document was decoded from a bare array, in
// which case only Entries is set.
func (d *Document) Legacy() bool { return d.Version == 0 }

var errEmpty = errors.New("snapshot: empty input")

// Encode renders doc. With legacy set only the entries are written, as a
// bare array. Entries are never encoded as null.
func Encode(doc Document, legacy bool) ([]byte, error) {
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	var (
		data []byte
		err  error
	)
	if legacy {
		data, err = json.MarshalIndent(doc.Entries, "", "  ")
	} else {
		doc.Version = Version
		doc.GeneratedAt = doc.GeneratedAt.UTC().Truncate(time.Second)
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses either encoding. A document with a newer version than this
// build understands is rejected with apperr.ErrSchemaMismatch.
func Decode(data []byte) (Document, error) {
	var doc Document
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return doc, errEmpty
	}

	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &doc.Entries); err != nil {
			return Document{}, fmt.Errorf("snapshot: decode legacy: %w", err)
		}
	case '{':
		if err := json.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("snapshot: decode: %w", err)
		}
		if doc.Version < 1 {
			return Document{}, fmt.Errorf("snapshot: decode: missing version")
		}
		if doc.Version > Version {
			return Document{}, fmt.Errorf("%w: snapshot v%d, reader v%d", apperr.ErrSchemaMismatch, doc.Version, Version)
		}
	default:
		return Document{}, fmt.Errorf("snapshot: decode: unexpected %q", data[0])
	}

	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	return doc, nil
}

// Package store is the primary store of courses and per-device preferences.
//
// Three implementations back the provisioning tiers: Hybrid (SQLite plus
// NATS JetStream KV replication of courses), a durable SQLite file, and an
// in-memory SQLite database that lives as long as the process.
package store

import (
	"context"

	"github.com/starford/classdeck/internal/models"
)

// Store defines the operations the rest of the application needs from the
// primary store. Consumers depend on this interface rather than a concrete
// type so that tests can substitute fakes.
type Store interface {
	// SaveCourse inserts or updates c by id. An empty id is assigned a new
	// UUIDv7 and CreatedAt is stamped when zero.
	SaveCourse(ctx context.Context, c *models.Course) error
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	// ListCourses returns every course in insertion order.
	ListCourses(ctx context.Context) ([]models.Course, error)
	DeleteCourse(ctx context.Context, id string) error

	GetPreference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error

	Close() error
}

// Verify implementations satisfy Store at compile time.
var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Hybrid)(nil)
)

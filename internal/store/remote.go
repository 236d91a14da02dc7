package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/starford/classdeck/internal/apperr"
	"github.com/starford/classdeck/internal/models"
)

// schemaKey holds the record schema version inside the course bucket.
const schemaKey = "_schema"

// Remote is the replication backend for courses. Preferences never reach it.
type Remote interface {
	Pull(ctx context.Context) ([]models.Course, error)
	Push(ctx context.Context, c models.Course) error
	Remove(ctx context.Context, id string) error
	Close() error
}

// RemoteConfig locates the JetStream KV bucket.
type RemoteConfig struct {
	URL     string
	Bucket  string
	Timeout time.Duration
}

// KVRemote replicates courses to a NATS JetStream key-value bucket, one key
// per course id.
type KVRemote struct {
	nc *nats.Conn
	kv jetstream.KeyValue
}

// ConnectRemote dials NATS, opens (or creates) the bucket and negotiates the
// schema version. Any failure closes the connection and is returned.
func ConnectRemote(ctx context.Context, cfg RemoteConfig) (*KVRemote, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name("classdeck"),
		nats.Timeout(timeout),
		nats.RetryOnFailedConnect(false),
	)
	if err != nil {
		return nil, fmt.Errorf("store: connect remote: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("store: jetstream: %w", err)
	}
	kv, err := getOrCreateBucket(ctx, js, cfg.Bucket)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("store: open bucket %s: %w", cfg.Bucket, err)
	}
	if err := negotiateSchema(ctx, kv); err != nil {
		nc.Close()
		return nil, err
	}
	return &KVRemote{nc: nc, kv: kv}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "classdeck course replication",
		History:     5,
	})
}

// negotiateSchema stamps an empty bucket with our schema version and
// refuses buckets written by a newer schema.
func negotiateSchema(ctx context.Context, kv jetstream.KeyValue) error {
	entry, err := kv.Get(ctx, schemaKey)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		_, err = kv.Create(ctx, schemaKey, []byte(strconv.Itoa(currentSchemaVersion)))
		if err != nil && !errors.Is(err, jetstream.ErrKeyExists) {
			return fmt.Errorf("store: stamp remote schema: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read remote schema: %w", err)
	}
	v, err := strconv.Atoi(string(entry.Value()))
	if err != nil {
		return fmt.Errorf("%w: unreadable remote schema %q", apperr.ErrSchemaMismatch, entry.Value())
	}
	if v > currentSchemaVersion {
		return fmt.Errorf("%w: remote v%d, local v%d", apperr.ErrSchemaMismatch, v, currentSchemaVersion)
	}
	return nil
}

// Pull returns every course in the bucket. Entries that fail to decode are
// skipped.
func (r *KVRemote) Pull(ctx context.Context) ([]models.Course, error) {
	keys, err := r.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: list remote keys: %w", err)
	}
	out := make([]models.Course, 0, len(keys))
	for _, key := range keys {
		if key == schemaKey {
			continue
		}
		entry, err := r.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var c models.Course
		if err := json.Unmarshal(entry.Value(), &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Push writes c under its id.
func (r *KVRemote) Push(ctx context.Context, c models.Course) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("store: marshal course: %w", err)
	}
	if _, err := r.kv.Put(ctx, c.ID, data); err != nil {
		return fmt.Errorf("store: push course %s: %w", c.ID, err)
	}
	return nil
}

// Remove deletes the course key.
func (r *KVRemote) Remove(ctx context.Context, id string) error {
	if err := r.kv.Delete(ctx, id); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("store: remove course %s: %w", id, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (r *KVRemote) Close() error {
	if err := r.nc.Drain(); err != nil {
		r.nc.Close()
		return err
	}
	return nil
}

package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// snapshotKey is the KV key identifier snapshots are stored under.
const snapshotKey = "identifier-index"

// DefaultSnapshotBucket is the JetStream KV bucket for index snapshots.
const DefaultSnapshotBucket = "SEMDEX_SNAPSHOTS"

// SaveSnapshot stores an identifier index snapshot in a JetStream KV
// bucket, creating the bucket if needed. Callers export the snapshot
// first so no index lock is held across the network call.
func SaveSnapshot(ctx context.Context, js jetstream.JetStream, bucket string, snapshot Snapshot) error {
	kv, err := getOrCreateBucket(ctx, js, bucket)
	if err != nil {
		return fmt.Errorf("open snapshot bucket: %w", err)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if _, err := kv.Put(ctx, snapshotKey, data); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the stored identifier index snapshot. A missing
// bucket or key yields ErrNotFound.
func LoadSnapshot(ctx context.Context, js jetstream.JetStream, bucket string) (Snapshot, error) {
	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: snapshot bucket %s", ErrNotFound, bucket)
	}

	entry, err := kv.Get(ctx, snapshotKey)
	if err != nil {
		if isKeyNotFound(err) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(entry.Value(), &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return snapshot, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Semdex %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// isKeyNotFound checks if an error indicates a key was not found.
func isKeyNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}

// Package snapshot persists serialized navigation histories between
// processes.
//
// A Store maps an id to an opaque byte slice with an expiry. routectl uses
// it to keep a history.Memory alive across invocations:
//
//	data, _ := h.Snapshot()
//	store.Save(ctx, "default", data, time.Now().Add(24*time.Hour))
//
// MemoryStore suits tests and single processes, RedisStore shares snapshots
// between hosts, and S3Store keeps them in a bucket.
package snapshot

package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	s := NewRedisStore(client, WithRedisPrefix("test:"))

	if err := s.Save(ctx, "nav", []byte("snap"), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := client.values["test:nav"]; !ok {
		t.Fatalf("key not prefixed: %v", client.values)
	}
	if ttl := client.ttls["test:nav"]; ttl <= 0 || ttl > time.Hour {
		t.Errorf("ttl = %v", ttl)
	}

	got, err := s.Load(ctx, "nav")
	if err != nil || string(got) != "snap" {
		t.Errorf("Load = %q, %v", got, err)
	}
	if got, err := s.Load(ctx, "missing"); got != nil || err != nil {
		t.Errorf("Load(missing) = %v, %v", got, err)
	}

	if err := s.Save(ctx, "nav", []byte("x"), time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Save expired: %v", err)
	}
	if _, ok := client.values["test:nav"]; ok {
		t.Error("saving an expired snapshot should delete the key")
	}

	if err := s.Save(ctx, "keep", []byte("y"), time.Time{}); err != nil {
		t.Fatalf("Save without expiry: %v", err)
	}
	if ttl, ok := client.ttls["test:keep"]; !ok || ttl != 0 {
		t.Errorf("ttl without expiry = %v, want 0", ttl)
	}
}

func TestRedisStoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	client := newFakeRedis()
	client.err = boom
	s := NewRedisStore(client)

	if err := s.Save(ctx, "a", nil, time.Now().Add(time.Hour)); !errors.Is(err, boom) {
		t.Errorf("Save = %v", err)
	}
	if _, err := s.Load(ctx, "a"); !errors.Is(err, boom) {
		t.Errorf("Load = %v", err)
	}
	if err := s.Delete(ctx, "a"); !errors.Is(err, boom) {
		t.Errorf("Delete = %v", err)
	}

	s.Close()
	if _, err := s.Load(ctx, "a"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Load after Close = %v", err)
	}
}

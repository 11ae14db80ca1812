package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	body     []byte
	metadata map[string]string
}

type fakeS3 struct {
	objects map[string]fakeObject
	err     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]fakeObject{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = fakeObject{body: body, metadata: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	obj, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("not found")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body)), Metadata: obj.metadata}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	s := NewS3Store(client, "bucket", "snaps/")

	if err := s.Save(ctx, "nav", []byte(`{"index":0}`), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	obj, ok := client.objects["bucket/snaps/nav"]
	if !ok {
		t.Fatalf("object not written under prefix: %v", client.objects)
	}
	if obj.metadata[metaExpiresAt] == "" {
		t.Error("expiry metadata missing")
	}

	got, err := s.Load(ctx, "nav")
	if err != nil || string(got) != `{"index":0}` {
		t.Errorf("Load = %q, %v", got, err)
	}
	if got, err := s.Load(ctx, "missing"); got != nil || err != nil {
		t.Errorf("Load(missing) = %v, %v", got, err)
	}

	if err := s.Delete(ctx, "nav"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(client.objects) != 0 {
		t.Error("object survived Delete")
	}
}

func TestS3StoreExpiry(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	client.objects["bucket/old"] = fakeObject{
		body:     []byte("stale"),
		metadata: map[string]string{metaExpiresAt: time.Now().Add(-time.Minute).UTC().Format(time.RFC3339Nano)},
	}
	s := NewS3Store(client, "bucket", "")

	if got, err := s.Load(ctx, "old"); got != nil || err != nil {
		t.Errorf("Load(expired) = %q, %v", got, err)
	}

	if err := s.Save(ctx, "old", []byte("x"), time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Save expired: %v", err)
	}
	if _, ok := client.objects["bucket/old"]; ok {
		t.Error("saving an expired snapshot should delete the object")
	}

	if err := s.Save(ctx, "keep", []byte("y"), time.Time{}); err != nil {
		t.Fatalf("Save without expiry: %v", err)
	}
	if _, ok := client.objects["bucket/keep"].metadata[metaExpiresAt]; ok {
		t.Error("snapshot without expiry should carry no expiry metadata")
	}
	if got, _ := s.Load(ctx, "keep"); string(got) != "y" {
		t.Errorf("Load(keep) = %q", got)
	}
}

func TestS3StoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("access denied")
	client := newFakeS3()
	client.err = boom
	s := NewS3Store(client, "bucket", "")

	if err := s.Save(ctx, "a", nil, time.Now().Add(time.Hour)); !errors.Is(err, boom) {
		t.Errorf("Save = %v", err)
	}
	if _, err := s.Load(ctx, "a"); !errors.Is(err, boom) {
		t.Errorf("Load = %v", err)
	}

	s.Close()
	if err := s.Delete(ctx, "a"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Delete after Close = %v", err)
	}
}

func TestNewS3Client(t *testing.T) {
	c := NewS3Client(S3ClientConfig{Region: "us-east-1", Endpoint: "http://localhost:9000", UsePathStyle: true})
	opts := c.Options()
	if opts.Region != "us-east-1" || !opts.UsePathStyle || aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("client options = %+v", opts)
	}
}

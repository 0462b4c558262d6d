package store

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	mu      sync.Mutex
	puts    []*s3.PutObjectInput
	body    []byte
	putErr  error
	keys    []string
	heads   map[string]*s3.HeadObjectOutput
	headErr error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, in)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.putErr
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	contents := make([]s3types.Object, 0, len(f.keys))
	for _, k := range f.keys {
		contents = append(contents, s3types.Object{Key: aws.String(k)})
	}
	return &s3.ListObjectsV2Output{Contents: contents, IsTruncated: aws.Bool(false)}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return f.heads[aws.ToString(in.Key)], nil
}

func TestS3StoreStore(t *testing.T) {
	client := &fakeS3{}
	s := &S3Store{Client: client, Bucket: "pets", SupabaseURL: "https://abc.supabase.co/"}

	got, err := s.Store(context.Background(), UploadParams{
		Name:        "generated_1_deadbeef.png",
		Data:        []byte("png"),
		ContentType: "image/png",
		Metadata:    map[string]string{"prompt-title": "Café Cat"},
	})
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	want := "https://abc.supabase.co/storage/v1/object/public/pets/generated_1_deadbeef.png"
	if got != want {
		t.Fatalf("Store = %q, want %q", got, want)
	}
	if len(client.puts) != 1 {
		t.Fatalf("PutObject called %d times, want 1", len(client.puts))
	}
	in := client.puts[0]
	if aws.ToString(in.Bucket) != "pets" || aws.ToString(in.Key) != "generated_1_deadbeef.png" || aws.ToString(in.ContentType) != "image/png" {
		t.Fatalf("unexpected put input: %+v", in)
	}
	if string(client.body) != "png" {
		t.Fatalf("body = %q", client.body)
	}
	if in.Metadata["prompt-title"] != url.QueryEscape("Café Cat") {
		t.Fatalf("metadata not escaped: %v", in.Metadata)
	}
}

func TestS3StoreStoreError(t *testing.T) {
	cause := errors.New("bucket not found")
	s := &S3Store{Client: &fakeS3{putErr: cause}, Bucket: "pets", SupabaseURL: "https://abc.supabase.co"}
	if _, err := s.Store(context.Background(), UploadParams{Name: "x.png"}); !errors.Is(err, cause) {
		t.Fatalf("Store error = %v, want %v", err, cause)
	}
}

func TestS3StoreRequiresBucket(t *testing.T) {
	client := &fakeS3{}
	s := &S3Store{Client: client, SupabaseURL: "https://abc.supabase.co"}
	if _, err := s.Store(context.Background(), UploadParams{Name: "x.png"}); err == nil {
		t.Fatal("expected error without bucket")
	}
	if len(client.puts) != 0 {
		t.Fatal("PutObject should not be called without bucket")
	}
}

func TestS3StoreList(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	client := &fakeS3{
		keys: []string{"generated_1_aaaaaaaa.png", "generated_2_bbbbbbbb.png", "generated_notes.txt"},
		heads: map[string]*s3.HeadObjectOutput{
			"generated_1_aaaaaaaa.png": {LastModified: aws.Time(now), Metadata: map[string]string{"prompt-title": url.QueryEscape("Café Cat")}},
			"generated_2_bbbbbbbb.png": {LastModified: aws.Time(now.Add(time.Hour))},
		},
	}
	s := &S3Store{Client: client, Bucket: "pets", SupabaseURL: "https://abc.supabase.co"}

	objs, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("List len = %d, want 2", len(objs))
	}
	if objs[0].Key != "generated_1_aaaaaaaa.png" || objs[0].Metadata["prompt-title"] != "Café Cat" {
		t.Fatalf("unexpected first object: %+v", objs[0])
	}
	if !objs[1].LastModified.Equal(now.Add(time.Hour)) {
		t.Fatalf("LastModified = %v", objs[1].LastModified)
	}
	if objs[1].URL != "https://abc.supabase.co/storage/v1/object/public/pets/generated_2_bbbbbbbb.png" {
		t.Fatalf("URL = %q", objs[1].URL)
	}
}

func TestS3StoreListHeadError(t *testing.T) {
	cause := errors.New("forbidden")
	s := &S3Store{Client: &fakeS3{keys: []string{"generated_1_a.png"}, headErr: cause}, Bucket: "pets"}
	if _, err := s.List(context.Background()); !errors.Is(err, cause) {
		t.Fatalf("List error = %v, want %v", err, cause)
	}
}

func TestProjectRef(t *testing.T) {
	ref, err := ProjectRef("https://abcdefgh.supabase.co")
	if err != nil {
		t.Fatalf("ProjectRef returned error: %v", err)
	}
	if ref != "abcdefgh" {
		t.Fatalf("ProjectRef = %q, want abcdefgh", ref)
	}
	if _, err := ProjectRef("http://localhost"); err == nil {
		t.Fatal("expected error for url without project ref")
	}
}

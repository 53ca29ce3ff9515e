package objectstore_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"subtrans/internal/objectstore"
	"subtrans/internal/services"
)

// fakeS3 is a path-style bucket server good enough for HEAD bucket, PUT
// bucket and PUT object.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
	types   map[string]string
	deny    bool
}

func newFakeS3(t *testing.T, buckets ...string) (*fakeS3, string) {
	t.Helper()
	f := &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}, types: map[string]string{}}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, strings.TrimPrefix(server.URL, "http://")
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deny {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
		return
	}
	bucket, key, _ := strings.Cut(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodHead && key == "":
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && key == "":
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		body, err := readPayload(r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.objects[bucket+"/"+key] = body
		f.types[bucket+"/"+key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeS3) object(key string) ([]byte, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	return data, f.types[key], ok
}

// readPayload returns the object bytes, undoing aws-chunked framing when the
// client streams the upload.
func readPayload(r *http.Request) ([]byte, error) {
	sha := r.Header.Get("X-Amz-Content-Sha256")
	if !strings.HasPrefix(sha, "STREAMING-") && !strings.Contains(r.Header.Get("Content-Encoding"), "aws-chunked") {
		return io.ReadAll(r.Body)
	}
	reader := bufio.NewReader(r.Body)
	var out bytes.Buffer
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		sizeText, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		size, err := strconv.ParseInt(sizeText, 16, 64)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, reader, size); err != nil {
			return nil, err
		}
		if _, err := reader.Discard(2); err != nil {
			return nil, err
		}
	}
}

func config(endpoint, bucket string) objectstore.Config {
	return objectstore.Config{
		Endpoint:  endpoint,
		Bucket:    bucket,
		Region:    "us-east-1",
		AccessKey: "access",
		SecretKey: "secret",
	}
}

func TestWriterUploadsUnderPrefix(t *testing.T) {
	fake, endpoint := newFakeS3(t, "subs")
	cfg := config(endpoint, "subs")
	cfg.Prefix = "/shows/s01/"

	w, err := objectstore.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	content := []byte("1\n00:00:01,000 --> 00:00:02,000\nSalut\n")
	location, err := w.Write(context.Background(), "ep1.srt", content)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if location != "s3://subs/shows/s01/ep1.srt" {
		t.Fatalf("unexpected location %q", location)
	}
	data, contentType, ok := fake.object("subs/shows/s01/ep1.srt")
	if !ok {
		t.Fatal("expected object to be stored")
	}
	if !bytes.Equal(data, content) {
		t.Fatalf("unexpected object body %q", data)
	}
	if contentType != "application/x-subrip" {
		t.Fatalf("unexpected content type %q", contentType)
	}
}

func TestOpenMissingBucket(t *testing.T) {
	_, endpoint := newFakeS3(t)
	_, err := objectstore.Open(context.Background(), config(endpoint, "nope"))
	if !errors.Is(err, objectstore.ErrBucketMissing) {
		t.Fatalf("expected missing bucket error, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatalf("expected configuration classification, got %v", services.Classify(err))
	}
}

func TestOpenCreatesBucket(t *testing.T) {
	fake, endpoint := newFakeS3(t)
	cfg := config(endpoint, "fresh")
	cfg.CreateBucket = true
	w, err := objectstore.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := w.Write(context.Background(), "a.srt", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, _, ok := fake.object("fresh/a.srt"); !ok {
		t.Fatal("expected object in created bucket")
	}
}

func TestOpenAccessDeniedIsConfiguration(t *testing.T) {
	fake, endpoint := newFakeS3(t, "subs")
	fake.deny = true
	_, err := objectstore.Open(context.Background(), config(endpoint, "subs"))
	if err == nil || !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestWriteCanceledContext(t *testing.T) {
	_, endpoint := newFakeS3(t, "subs")
	w, err := objectstore.Open(context.Background(), config(endpoint, "subs"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Write(ctx, "a.srt", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestKeyWithoutPrefix(t *testing.T) {
	_, endpoint := newFakeS3(t, "subs")
	w, err := objectstore.Open(context.Background(), config(endpoint, "subs"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := w.Key("ep.srt"); got != "ep.srt" {
		t.Fatalf("Key = %q", got)
	}
}

package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"mentormatch/internal/blob"
)

// fakeTransport serves a minimal S3 subset (Head/Get/Put/Delete/ListObjectsV2)
// from process memory, enough to exercise the adapter without network access.
type fakeTransport struct{ objects map[string]fakeObject }

type fakeObject struct {
	body        []byte
	contentType string
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && strings.Contains(req.URL.RawQuery, "list-type=2") {
		return f.listResponse(req), nil
	}
	switch req.Method {
	case http.MethodHead:
		if obj, ok := f.objects[key]; ok {
			return okResponse(nil, http.Header{
				"Content-Length": {strconv.Itoa(len(obj.body))},
				"Content-Type":   {obj.contentType},
				"Etag":           {`"etag123"`},
				"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
			}), nil
		}
		return statusResponse(http.StatusNotFound), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeAWSChunked(body); ok {
			body = dec
		}
		if _, exists := f.objects[key]; !exists {
			f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		}
		return okResponse(nil, http.Header{"Etag": {`"etag123"`}}), nil
	case http.MethodGet:
		if obj, ok := f.objects[key]; ok {
			return okResponse(obj.body, http.Header{
				"Content-Length": {strconv.Itoa(len(obj.body))},
				"Content-Type":   {obj.contentType},
				"Etag":           {`"etag123"`},
				"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
			}), nil
		}
		return statusResponse(http.StatusNotFound), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return statusResponse(http.StatusNoContent), nil
	}
	return statusResponse(http.StatusNotImplemented), nil
}

// listResponse pages one key at a time so the adapter's continuation loop is
// exercised whenever more than one key matches.
func (f *fakeTransport) listResponse(req *http.Request) *http.Response {
	prefix := req.URL.Query().Get("prefix")
	cont := req.URL.Query().Get("continuation-token")
	var keys []string
	for k := range f.objects {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	start := 0
	if cont != "" {
		if n, err := strconv.Atoi(cont); err == nil {
			start = n
		}
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult>`)
	end := len(keys)
	if start < len(keys)-1 {
		end = start + 1
		fmt.Fprintf(&b, "<IsTruncated>true</IsTruncated><NextContinuationToken>%d</NextContinuationToken>", end)
	} else {
		b.WriteString("<IsTruncated>false</IsTruncated>")
	}
	for _, k := range keys[start:end] {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2026-08-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k].body))
	}
	b.WriteString("</ListBucketResult>")
	return okResponse([]byte(b.String()), http.Header{"Content-Type": {"application/xml"}})
}

func okResponse(body []byte, header http.Header) *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(body)), Header: header}
}

func statusResponse(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}
}

// decodeAWSChunked unwraps a single-chunk aws-chunked payload:
// <hex-size>\r\n<body>\r\n0\r\n...
func decodeAWSChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	n, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || n <= 0 || int64(len(parts[1])) != n || parts[2] != "0" {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newFakeStore(t *testing.T) *Store {
	t.Helper()
	rt := &fakeTransport{objects: make(map[string]fakeObject)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.BaseEndpoint = aws.String("https://fake.s3.local")
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
	})
	return &Store{client: client, bucket: "test-bucket", presign: awss3.NewPresignClient(client)}
}

func TestS3PutIsCreateOnlyAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	key := blob.RunKey("run-1", "allocations.csv")

	info, err := store.Put(ctx, key, strings.NewReader("counter,student_id\n"), blob.PutOptions{ContentType: "text/csv"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.Key != key || info.ContentType != "text/csv" || info.ETag != "etag123" {
		t.Fatalf("info = %+v", info)
	}
	if _, err := store.Put(ctx, key, strings.NewReader("other"), blob.PutOptions{}); err == nil {
		t.Fatal("second Put on same key must fail")
	}

	got, rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "counter,student_id\n" {
		t.Fatalf("data = %q", data)
	}
	if got.ContentType != "text/csv" {
		t.Fatalf("get info = %+v", got)
	}

	existed, err := store.Delete(ctx, key)
	if err != nil || !existed {
		t.Fatalf("Delete: existed=%v err=%v", existed, err)
	}
	if _, err := store.Head(ctx, key); err == nil {
		t.Fatal("Head after delete must fail")
	}
}

func TestS3ListPaginatesSortedUnderPrefix(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	for _, key := range []string{
		blob.RunKey("run-1", "trace.csv"),
		blob.RunKey("run-1", "allocations.csv"),
		blob.RunKey("run-1", "gate.json"),
		blob.RunKey("run-2", "trace.csv"),
	} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), blob.PutOptions{}); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "runs/run-1/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"runs/run-1/allocations.csv", "runs/run-1/gate.json", "runs/run-1/trace.csv"}
	if len(infos) != len(want) {
		t.Fatalf("infos = %+v", infos)
	}
	for i, w := range want {
		if infos[i].Key != w {
			t.Fatalf("infos[%d].Key = %s, want %s", i, infos[i].Key, w)
		}
	}

	empty, err := store.List(ctx, "runs/run-9/")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty prefix: %v %+v", err, empty)
	}
}

func TestS3PresignURL(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)

	url, err := store.PresignURL(ctx, "runs/run-1/gate.json", blob.SignedURLOptions{})
	if err != nil || url == "" {
		t.Fatalf("PresignURL: %v %q", err, url)
	}
	if url, err := store.PresignURL(ctx, "k", blob.SignedURLOptions{Expiry: 30 * time.Second}); err != nil || url == "" {
		t.Fatalf("custom expiry: %v %q", err, url)
	}
	if _, err := store.PresignURL(ctx, "k", blob.SignedURLOptions{Method: "PUT"}); !errors.Is(err, blob.ErrUnsupported) {
		t.Fatalf("PUT presign err = %v, want ErrUnsupported", err)
	}
}

func TestS3MissingObjectErrors(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	if _, err := store.Head(ctx, "absent"); err == nil {
		t.Fatal("Head on missing key must fail")
	}
	if _, _, err := store.Get(ctx, "absent"); err == nil {
		t.Fatal("Get on missing key must fail")
	}
}

func TestS3NewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("empty bucket must be rejected")
	}
}

func TestS3OpenFromEnv(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	t.Setenv("MENTORMATCH_BLOB_S3_BUCKET", "")
	if _, err := OpenFromEnv(context.Background()); err == nil {
		t.Fatal("missing bucket env must be rejected")
	}

	t.Setenv("MENTORMATCH_BLOB_S3_BUCKET", "env-bucket")
	t.Setenv("MENTORMATCH_BLOB_S3_REGION", "us-east-1")
	t.Setenv("MENTORMATCH_BLOB_S3_ENDPOINT", "https://fake.s3.local")
	t.Setenv("MENTORMATCH_BLOB_S3_PATH_STYLE", "true")
	store, err := OpenFromEnv(context.Background())
	if err != nil {
		t.Fatalf("OpenFromEnv: %v", err)
	}
	if store.Driver() != blob.DriverS3 {
		t.Fatalf("driver = %s", store.Driver())
	}
}

func TestS3InfoFromNilFields(t *testing.T) {
	store := newFakeStore(t)
	info := store.infoFrom("k", 10, nil, aws.String(`"etagval"`), map[string]string{"run_id": "run-1"}, nil)
	if info.ETag != "etagval" || info.ContentType != "" || info.Size != 10 || info.Metadata["run_id"] != "run-1" {
		t.Fatalf("info = %+v", info)
	}
}

func TestDecodeAWSChunked(t *testing.T) {
	if _, ok := decodeAWSChunked([]byte("plain body")); ok {
		t.Fatal("non-chunked payload must not decode")
	}
	if _, ok := decodeAWSChunked([]byte("5\r\nabc\r\n0\r\n")); ok {
		t.Fatal("size mismatch must not decode")
	}
	if b, ok := decodeAWSChunked([]byte("5\r\nhello\r\n0\r\n")); !ok || string(b) != "hello" {
		t.Fatalf("decode = %q ok=%v", b, ok)
	}
}

package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Sahilgupta2175/event-calendar/internal/model"
)

type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
	delErr  error
}

func newMockS3Client() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.objects[*input.Key] = data
	m.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	data, ok := m.objects[*input.Key]
	m.mu.Unlock()
	if !ok {
		return nil, errS3NotFound
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.delErr != nil {
		return nil, m.delErr
	}
	m.mu.Lock()
	delete(m.objects, *input.Key)
	m.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

var errS3NotFound = errors.New("NoSuchKey")

func setupMirroredManager(t *testing.T) (*Manager, *memCollection, *mockS3Client) {
	t.Helper()
	cfg := Config{Dir: t.TempDir(), Passphrase: "pw", S3: S3Config{Bucket: "b", Prefix: "eventcal"}}
	m, events := setupManager(t, cfg, nil)
	client := newMockS3Client()
	m.remote = client
	return m, events, client
}

func TestS3ConfigEnabled(t *testing.T) {
	tests := []struct {
		cfg  S3Config
		want bool
	}{
		{S3Config{}, false},
		{S3Config{Bucket: "b"}, false},
		{S3Config{Bucket: "b", AccessKey: "k"}, false},
		{S3Config{Bucket: "b", AccessKey: "k", SecretKey: "s"}, true},
	}
	for _, tt := range tests {
		if got := tt.cfg.Enabled(); got != tt.want {
			t.Errorf("%+v.Enabled() = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}

func TestNewManagerCreatesS3Client(t *testing.T) {
	m := NewManager(Config{S3: S3Config{Bucket: "b", AccessKey: "k", SecretKey: "s", Endpoint: "http://localhost:9000"}}, nil, nil, nil, slog.Default())
	if m.remote == nil {
		t.Error("remote client should be set when s3 is configured")
	}

	m2 := NewManager(Config{}, nil, nil, nil, slog.Default())
	if m2.remote != nil {
		t.Error("remote client should be nil without s3 config")
	}
}

func TestRunUploadsToS3(t *testing.T) {
	m, _, client := setupMirroredManager(t)

	b, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	key := "eventcal/" + b.Filename
	if !client.has(key) {
		t.Fatalf("object %q not uploaded", key)
	}

	local, err := os.ReadFile(b.Path)
	if err != nil {
		t.Fatalf("read local: %v", err)
	}
	if !bytes.Equal(client.objects[key], local) {
		t.Error("uploaded object differs from local file")
	}
}

func TestRunFailsOnUploadError(t *testing.T) {
	m, _, client := setupMirroredManager(t)
	client.putErr = errors.New("connection refused")

	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected error when upload fails")
	}
	if m.Status().State != StateError {
		t.Errorf("state = %q, want %q", m.Status().State, StateError)
	}

	list, err := m.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Status != model.BackupStatusFailed {
		t.Errorf("records = %+v, want one failed", list)
	}
}

func TestRestoreDownloadsMissingFile(t *testing.T) {
	m, events, _ := setupMirroredManager(t)

	b, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := os.Remove(b.Path); err != nil {
		t.Fatalf("remove local: %v", err)
	}
	events.Replace(nil)

	n, err := m.Restore(b.Path, "pw")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n != 2 {
		t.Errorf("restored %d, want 2", n)
	}
	info, err := os.Stat(b.Path)
	if err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm = %o, want 600", info.Mode().Perm())
	}
}

func TestRestoreMissingWithoutMirror(t *testing.T) {
	m, _ := setupManager(t, Config{Dir: t.TempDir(), Passphrase: "pw"}, nil)
	if _, err := m.Restore("/nonexistent/eventcal.enc", "pw"); err == nil {
		t.Fatal("expected error for missing file without mirror")
	}
}

func TestCleanupDeletesRemote(t *testing.T) {
	m, _, client := setupMirroredManager(t)

	b, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := m.Cleanup(-1); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if client.has("eventcal/" + b.Filename) {
		t.Error("remote object should be deleted")
	}
}

func TestCleanupIgnoresRemoteDeleteError(t *testing.T) {
	m, _, client := setupMirroredManager(t)
	if _, err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	client.delErr = errors.New("access denied")

	if err := m.Cleanup(-1); err != nil {
		t.Errorf("cleanup should not fail on remote delete error: %v", err)
	}
}

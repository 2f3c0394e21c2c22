package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds optional S3-compatible storage that mirrors every local
// snapshot off-site.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// Prefix is prepended to object keys, e.g. "eventcal/".
	Prefix string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (m *Manager) objectKey(filename string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return path.Join(m.cfg.S3.Prefix, filename)
}

func (m *Manager) remoteClient() (s3Client, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.remote, m.cfg.S3.Bucket
}

// upload copies the encrypted file at src to the bucket.
func (m *Manager) upload(ctx context.Context, src string) error {
	client, bucket := m.remoteClient()
	if client == nil {
		return nil
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open encrypted file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat encrypted file: %w", err)
	}

	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(m.objectKey(filepath.Base(src))),
		Body:          f,
		ContentLength: aws.Int64(stat.Size()),
	}); err != nil {
		return fmt.Errorf("upload to s3: %w", err)
	}
	return nil
}

// download fetches the object for dst's filename and writes it to dst.
func (m *Manager) download(ctx context.Context, dst string) error {
	client, bucket := m.remoteClient()
	if client == nil {
		return fmt.Errorf("backup %s not found locally and no s3 mirror configured", filepath.Base(dst))
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(m.objectKey(filepath.Base(dst))),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, result.Body); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return out.Close()
}

// deleteRemote removes the mirrored copies of the given local paths. Failures
// are logged, not returned.
func (m *Manager) deleteRemote(ctx context.Context, paths []string) {
	client, bucket := m.remoteClient()
	if client == nil {
		return
	}
	for _, p := range paths {
		key := m.objectKey(filepath.Base(p))
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete s3 object", "key", key, "error", err)
		}
	}
}

package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store persists artifacts under path-like keys.
type Store interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, path string) error
}

// MinioStore writes to a minio bucket. A nil client skips uploads so local
// runs without object storage still record the path.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	if endpoint == "" {
		return &MinioStore{bucket: bucket}, nil
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the bucket on first start.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
}

func (s *MinioStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if s.client == nil {
		return nil
	}
	_, err := s.client.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

func (s *MinioStore) Remove(ctx context.Context, path string) error {
	if s.client == nil {
		return nil
	}
	return s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
}

// MemoryStore keeps objects in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, path string, r io.Reader, _ int64, _ string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = buf.Bytes()
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

func (m *MemoryStore) Get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[path]
	return b, ok
}

func (m *MemoryStore) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for p := range m.objects {
		out = append(out, p)
	}
	return out
}

// Path conventions

const (
	timestampLayout = "20060102_150405"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeName reduces s to a path segment.
func SafeName(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "_.")
	if s == "" {
		return "file"
	}
	return s
}

// Ext returns the lowercase extension of filename without the dot, or fallback.
func Ext(filename, fallback string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" || unsafeChars.MatchString(ext) {
		return fallback
	}
	return ext
}

func InvoicePath(poNumber, ext string, at time.Time) string {
	return fmt.Sprintf("purchase_invoices/invoice_%s_%s.%s", SafeName(poNumber), at.Format(timestampLayout), ext)
}

// VendorDocumentPath n > 0 numbers repeated uploads of the same field.
func VendorDocumentPath(vendorID, vendorName, field string, n int, ext string) string {
	name := SafeName(field)
	if n > 0 {
		name = fmt.Sprintf("%s_%d", name, n)
	}
	return fmt.Sprintf("vendor_documents/%s_%s/%s.%s", vendorID, SafeName(vendorName), name, ext)
}

func GatePassPath(number, ext string) string {
	return fmt.Sprintf("gate_passes/%s.%s", number, ext)
}

func DeliveryChallanPath(number string, at time.Time) string {
	return fmt.Sprintf("documents/delivery_challan_%s_%s.xlsx", SafeName(number), at.Format(timestampLayout))
}

func PurchaseOrderPath(poNumber string) string {
	return fmt.Sprintf("purchase_orders/%s.xlsx", SafeName(poNumber))
}

func ItemRequestDocumentPath(requestID, filename string) string {
	return fmt.Sprintf("item_requests/%s/%s", requestID, SafeName(filename))
}

// Package images issues short-lived presigned URLs for chat image
// attachments stored in S3-compatible object storage.
//
// The server never proxies image bytes: clients upload directly with a
// presigned PUT and download with a presigned GET, and messages carry only
// the object key.
package images

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	// ErrInvalidKey is returned when an object key fails validation.
	ErrInvalidKey = errors.New("images: invalid object key")

	// ErrUnsupportedType is returned for content types outside the allowlist.
	ErrUnsupportedType = errors.New("images: unsupported content type")
)

// Allowed upload content types. Chat attachments are photos, nothing else.
var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

const (
	defaultUploadTTL   = 10 * time.Minute
	defaultDownloadTTL = 1 * time.Hour

	keyPrefix = "chat"
)

// Config carries the object-storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool

	UploadTTL   time.Duration
	DownloadTTL time.Duration
}

// Issuer signs upload and download addresses for chat attachments.
type Issuer struct {
	client *minio.Client
	bucket string

	uploadTTL   time.Duration
	downloadTTL time.Duration
}

// NewIssuer builds an Issuer from cfg.
func NewIssuer(cfg Config) (*Issuer, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("images: endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("images: init client: %w", err)
	}

	iss := &Issuer{
		client:      client,
		bucket:      cfg.Bucket,
		uploadTTL:   cfg.UploadTTL,
		downloadTTL: cfg.DownloadTTL,
	}
	if iss.uploadTTL <= 0 {
		iss.uploadTTL = defaultUploadTTL
	}
	if iss.downloadTTL <= 0 {
		iss.downloadTTL = defaultDownloadTTL
	}
	return iss, nil
}

// UploadAddress is a presigned PUT target plus the key the client must echo
// back in its message_send frame.
type UploadAddress struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewUploadAddress issues a presigned PUT for a fresh object key scoped to
// the thread. id should be unique per upload (a ULID works).
func (i *Issuer) NewUploadAddress(ctx context.Context, threadID int64, id, contentType string) (UploadAddress, error) {
	if i == nil || i.client == nil {
		return UploadAddress{}, errors.New("images: nil issuer")
	}

	ext, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return UploadAddress{}, ErrUnsupportedType
	}
	id = strings.TrimSpace(id)
	if id == "" || threadID <= 0 {
		return UploadAddress{}, ErrInvalidKey
	}

	key := path.Join(keyPrefix, fmt.Sprintf("%d", threadID), id+ext)

	u, err := i.client.PresignedPutObject(ctx, i.bucket, key, i.uploadTTL)
	if err != nil {
		return UploadAddress{}, fmt.Errorf("images: presign put: %w", err)
	}

	return UploadAddress{
		Key:       key,
		URL:       u.String(),
		Method:    "PUT",
		ExpiresAt: time.Now().UTC().Add(i.uploadTTL),
	}, nil
}

// DownloadAddress is a presigned GET for an existing attachment key.
type DownloadAddress struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewDownloadAddress issues a presigned GET for key. The caller must have
// already authorized thread membership for the key's thread.
func (i *Issuer) NewDownloadAddress(ctx context.Context, key string) (DownloadAddress, error) {
	if i == nil || i.client == nil {
		return DownloadAddress{}, errors.New("images: nil issuer")
	}
	if err := ValidateKey(key); err != nil {
		return DownloadAddress{}, err
	}

	u, err := i.client.PresignedGetObject(ctx, i.bucket, key, i.downloadTTL, url.Values{})
	if err != nil {
		return DownloadAddress{}, fmt.Errorf("images: presign get: %w", err)
	}

	return DownloadAddress{
		Key:       key,
		URL:       u.String(),
		ExpiresAt: time.Now().UTC().Add(i.downloadTTL),
	}, nil
}

// ThreadIDFromKey extracts the thread id component from an attachment key of
// the form chat/<thread_id>/<object>. Authorization checks depend on this.
func ThreadIDFromKey(key string) (int64, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}
	parts := strings.Split(key, "/")

	var id int64
	if _, err := fmt.Sscanf(parts[1], "%d", &id); err != nil || id <= 0 {
		return 0, ErrInvalidKey
	}
	return id, nil
}

// ValidateKey enforces the chat/<thread_id>/<object> shape and rejects path
// traversal.
func ValidateKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 512 {
		return ErrInvalidKey
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != keyPrefix || parts[1] == "" || parts[2] == "" {
		return ErrInvalidKey
	}
	return nil
}

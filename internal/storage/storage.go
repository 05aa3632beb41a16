package storage

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"chart-race/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
)

// Client gives the rest of the program access to dataset files, wherever
// they live (a local directory or an S3-compatible bucket).
type Client struct {
	backend      StorageProvider
	bucket       string
	ingestPrefix string
}

func New(cfg *config.Config) (*Client, error) {
	var backend StorageProvider

	switch cfg.Storage.Provider {
	case "s3":
		s3Config := &aws.Config{
			Credentials:      credentials.NewStaticCredentials(cfg.Storage.KeyID, cfg.Storage.AppKey, ""),
			Endpoint:         aws.String(cfg.Storage.Endpoint),
			Region:           aws.String(cfg.Storage.Region),
			S3ForcePathStyle: aws.Bool(true),
		}
		sess, err := session.NewSession(s3Config)
		if err != nil {
			return nil, fmt.Errorf("s3 session: %w", err)
		}
		backend = NewS3Provider(sess)
	case "local", "":
		backend = NewLocalProvider(cfg.Storage.LocalStorage)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}

	return NewWithProvider(backend, cfg.Storage.Bucket, cfg.Storage.IngestPrefix), nil
}

// NewWithProvider wires a Client around an existing backend.
func NewWithProvider(backend StorageProvider, bucket, ingestPrefix string) *Client {
	return &Client{
		backend:      backend,
		bucket:       bucket,
		ingestPrefix: ingestPrefix,
	}
}

// --- Dataset Methods ---

func (c *Client) DownloadFile(key string) (*FileObject, error) {
	return c.backend.Get(c.bucket, key)
}

func (c *Client) UploadFile(key string, body io.ReadSeeker, contentType string) error {
	return c.backend.Put(c.bucket, key, body, contentType, "")
}

func (c *Client) DeleteFile(key string) error {
	return c.backend.Delete(c.bucket, key)
}

func (c *Client) Exists(key string) (bool, error) {
	return c.backend.Exists(c.bucket, key)
}

// --- Ingester Methods ---

// ListIngestFiles returns the CSV files waiting under the ingest prefix, sorted.
func (c *Client) ListIngestFiles() ([]string, error) {
	keys, err := c.backend.List(c.bucket, c.ingestPrefix)
	if err != nil {
		return nil, err
	}

	var csvKeys []string
	for _, key := range keys {
		if strings.HasSuffix(strings.ToLower(key), ".csv") {
			csvKeys = append(csvKeys, key)
		}
	}
	sort.Strings(csvKeys)
	return csvKeys, nil
}

func (c *Client) IngestPrefix() string {
	return c.ingestPrefix
}

// MoveFile parks src under dst. Used for files the ingester cannot read so
// they leave the queue.
func (c *Client) MoveFile(src, dst string) error {
	return c.backend.Move(c.bucket, src, dst)
}

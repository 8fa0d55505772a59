package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"courtside/pkg/logger"
)

const (
	signedURLTTL = time.Hour
	// Cached URLs are refreshed this long before they expire.
	refreshMargin = 5 * time.Minute
)

type cachedURL struct {
	url     string
	expires time.Time
}

// CloudStorageClient resolves stored profile image references (object
// names or gs:// URLs) to signed download URLs.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string

	sign func(object string, expires time.Time) (string, error)
	now  func() time.Time

	mu    sync.Mutex
	cache map[string]cachedURL
}

func NewCloudStorageClient(ctx context.Context, bucketName string, credentialsPath string) (*CloudStorageClient, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	c := newCloudStorageClient(bucketName, nil)
	c.client = client
	c.sign = func(object string, expires time.Time) (string, error) {
		return client.Bucket(bucketName).SignedURL(object, &storage.SignedURLOptions{
			Method:  http.MethodGet,
			Expires: expires,
			Scheme:  storage.SigningSchemeV4,
		})
	}
	return c, nil
}

func newCloudStorageClient(bucketName string, sign func(string, time.Time) (string, error)) *CloudStorageClient {
	return &CloudStorageClient{
		bucketName: bucketName,
		sign:       sign,
		now:        time.Now,
		cache:      make(map[string]cachedURL),
	}
}

// Resolve returns a URL for ref. Plain http(s) URLs pass through, and ref is
// returned unchanged when signing fails.
func (c *CloudStorageClient) Resolve(ctx context.Context, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	object, ok := c.objectName(ref)
	if !ok {
		return ref
	}

	now := c.now()
	c.mu.Lock()
	if hit, ok := c.cache[object]; ok && now.Add(refreshMargin).Before(hit.expires) {
		c.mu.Unlock()
		return hit.url
	}
	c.mu.Unlock()

	expires := now.Add(signedURLTTL)
	url, err := c.sign(object, expires)
	if err != nil {
		logger.Warn("Failed to sign URL for %s: %v", object, err)
		return ref
	}

	c.mu.Lock()
	c.cache[object] = cachedURL{url: url, expires: expires}
	c.mu.Unlock()
	return url
}

func (c *CloudStorageClient) objectName(ref string) (string, bool) {
	if !strings.HasPrefix(ref, "gs://") {
		return strings.TrimPrefix(ref, "/"), true
	}
	path := strings.TrimPrefix(ref, "gs://")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] != c.bucketName || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (c *CloudStorageClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

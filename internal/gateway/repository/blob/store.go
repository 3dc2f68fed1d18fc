package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store holds externalized file content. Upload returns the URL Fetch accepts.
type Store interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// Signer is implemented by stores that can mint time-limited download links.
type Signer interface {
	SignedURL(ctx context.Context, path string) (string, error)
}

var ErrNotFound = errors.New("blob not found")

// cleanKey validates an object path and strips leading slashes.
func cleanKey(path string) (string, error) {
	key := strings.TrimLeft(strings.TrimSpace(path), "/")
	if key == "" {
		return "", fmt.Errorf("path is required")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid path: %s", path)
		}
	}
	return key, nil
}

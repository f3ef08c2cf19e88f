package jobrunner

import (
	"context"
	"fmt"

	"github.com/cvpg/imageproc/pkg/storage"
)

// DefaultResolver dispatches by URI scheme across the local/http/s3
// backends, grounded on pkg/executor/storage_manager.go's getStorage
// switch. S3 is left nil (and reported as unavailable per request) when no
// AWS credentials are present in the environment.
type DefaultResolver struct {
	local *storage.LocalStorage
	http  *storage.HTTPStorage
	s3    *storage.S3Storage
}

// NewDefaultResolver constructs a resolver, attempting to initialize an S3
// backend from ambient AWS credentials; S3 requests fail clearly if that
// initialization did not succeed.
func NewDefaultResolver(ctx context.Context) *DefaultResolver {
	r := &DefaultResolver{
		local: storage.NewLocalStorage(),
		http:  storage.NewHTTPStorage(),
	}
	if s3, err := storage.NewS3Storage(ctx); err == nil {
		r.s3 = s3
	}
	return r
}

// Resolve implements StorageResolver.
func (r *DefaultResolver) Resolve(scheme string) (storage.Storage, error) {
	switch scheme {
	case "file":
		return r.local, nil
	case "http", "https":
		return r.http, nil
	case "s3":
		if r.s3 == nil {
			return nil, fmt.Errorf("s3 storage not initialized (AWS credentials may be missing)")
		}
		return r.s3, nil
	default:
		return nil, fmt.Errorf("unsupported URI scheme: %s", scheme)
	}
}

package media

import (
	"context"
	"fmt"

	"github.com/shinyyama/marketplace-backend/internal/config"
	"google.golang.org/api/option"
)

// Open builds the store selected by MEDIA_BACKEND.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.MediaBackend {
	case config.MediaBackendGCS:
		var opts []option.ClientOption
		if cfg.GoogleCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
		}
		// A relative UPLOADS_BASE_URL only makes sense for local files.
		base := cfg.UploadsBaseURL
		if len(base) > 0 && base[0] == '/' {
			base = ""
		}
		return NewGCSStore(ctx, cfg.StorageBucket, cfg.StoragePrefix, base, opts...)
	case config.MediaBackendLocal, "":
		return NewLocalStore(cfg.UploadDir, cfg.UploadsBaseURL)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.MediaBackend)
	}
}

package services

import (
	"os"
	"path/filepath"

	"skystore/config"

	"github.com/disintegration/imaging"
)

// generateThumbnail renders a bounded JPEG preview next to the configured
// thumbnail root. Thumbnail failures never fail an upload; callers ignore
// the error beyond logging.
func generateThumbnail(srcPath, dstPath string, cfg *config.ThumbnailConfig) error {
	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}

	thumb := imaging.Fit(img, cfg.Width, cfg.Height, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}
	return imaging.Save(thumb, dstPath, imaging.JPEGQuality(cfg.Quality))
}

// Package intake validates media files before they enter the queue.
package intake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"postline/internal/config"
	"postline/internal/fileutil"
	"postline/internal/media/ffprobe"
	"postline/internal/services"
)

const probeTimeout = 30 * time.Second

var supportedExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".webm": {},
}

// SupportedExtensions lists the accepted media extensions.
func SupportedExtensions() []string {
	return []string{".mp4", ".mov", ".webm"}
}

// Prepare resolves path to an absolute media file reference. When importFile
// is set the file is copied into the configured media directory first and the
// copy is returned.
func Prepare(cfg *config.Config, path string, importFile bool) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", services.Wrap(services.ErrValidation, "intake", "prepare", "media path is required", nil)
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "intake", "resolve path", "", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", services.Wrap(services.ErrNotFound, "intake", "stat media", absPath, nil)
		}
		return "", fmt.Errorf("stat media file: %w", err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "intake", "stat media", fmt.Sprintf("%q is a directory", absPath), nil)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrValidation, "intake", "stat media", fmt.Sprintf("%q is empty", absPath), nil)
	}
	ext := strings.ToLower(filepath.Ext(info.Name()))
	if _, ok := supportedExtensions[ext]; !ok {
		return "", services.Wrap(services.ErrValidation, "intake", "check extension",
			fmt.Sprintf("unsupported file extension %q (want %s)", ext, strings.Join(SupportedExtensions(), ", ")), nil)
	}
	if err := probe(cfg, absPath); err != nil {
		return "", err
	}
	if !importFile || cfg == nil || strings.TrimSpace(cfg.Paths.MediaDir) == "" {
		return absPath, nil
	}
	if fileutil.IsWithin(cfg.Paths.MediaDir, absPath) {
		return absPath, nil
	}
	imported, err := fileutil.ImportFile(absPath, cfg.Paths.MediaDir)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "intake", "import media", "", err)
	}
	return imported, nil
}

func probe(cfg *config.Config, path string) error {
	if cfg == nil || !cfg.Intake.Probe {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	result, err := ffprobe.Inspect(ctx, cfg.Intake.FFprobeBinary, path)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "intake", "probe media", path, err)
	}
	if result.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "intake", "probe media", fmt.Sprintf("%q has no video stream", path), nil)
	}
	limit := cfg.MaxMediaDuration()
	if duration := result.Duration(); limit > 0 && duration > limit {
		return services.Wrap(services.ErrValidation, "intake", "probe media",
			fmt.Sprintf("%q runs %s, limit is %s", path, duration.Round(time.Second), limit), nil)
	}
	return nil
}

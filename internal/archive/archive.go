// Package archive stores clipboard images as PNG files under a private
// directory, one file per Image entry.
package archive

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

const (
	// DefaultThumbnailSize is the longest edge of a generated thumbnail.
	DefaultThumbnailSize = 150

	filePrefix = "clip_"
	fileExt    = ".png"

	// attempts at finding a free name before giving up
	maxNameAttempts = 100
)

var (
	ErrNilImage     = errors.New("archive: nil image")
	ErrOutsideStore = errors.New("archive: path outside images directory")
)

// Archive owns the images directory.
type Archive struct {
	dir string
	now func() time.Time
	log logger.Logger
}

// New creates the images directory if needed.
func New(dir string, log logger.Logger) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}
	return &Archive{dir: dir, now: time.Now, log: log}, nil
}

// Dir returns the images directory.
func (a *Archive) Dir() string { return a.dir }

// NewPath returns an unused file name for the next image. The name embeds a
// nanosecond timestamp; a numeric suffix is appended on collision.
func (a *Archive) NewPath() (string, error) {
	t := a.now().UTC()
	base := fmt.Sprintf("%s%s_%09d", filePrefix, t.Format("20060102_150405"), t.Nanosecond())

	for i := 0; i < maxNameAttempts; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		path := filepath.Join(a.dir, name+fileExt)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
	}
	return "", fmt.Errorf("archive: no free file name for %s", base)
}

// Save encodes img as PNG under a fresh name and returns its path.
func (a *Archive) Save(img image.Image) (string, error) {
	path, err := a.NewPath()
	if err != nil {
		return "", err
	}
	if err := a.SaveAt(path, img); err != nil {
		return "", err
	}
	return path, nil
}

// SaveAt encodes img as PNG at path. The file must not exist yet; a partial
// file is removed when encoding fails.
func (a *Archive) SaveAt(path string, img image.Image) (err error) {
	if img == nil {
		return ErrNilImage
	}
	if !a.owns(path) {
		return ErrOutsideStore
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close image file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Load decodes the PNG at path.
func (a *Archive) Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image file: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}

// Delete removes the file at path. Failures are logged and swallowed.
func (a *Archive) Delete(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		a.log.Warn("failed to delete archived image",
			logger.String("path", path),
			logger.Error(err),
		)
	}
}

func (a *Archive) owns(path string) bool {
	rel, err := filepath.Rel(a.dir, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}

// CreateThumbnail scales img so its longest edge is at most maxSize,
// preserving aspect ratio. Images already small enough are returned as is.
func CreateThumbnail(img image.Image, maxSize int) image.Image {
	if img == nil {
		return nil
	}
	if maxSize <= 0 {
		maxSize = DefaultThumbnailSize
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}

	scale := min(float64(maxSize)/float64(w), float64(maxSize)/float64(h), 1)
	if scale == 1 {
		return img
	}

	tw := max(1, int(float64(w)*scale))
	th := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

package fs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	_ "golang.org/x/image/webp"

	"github.com/aretw0/tack/pkg/core"
)

// Images is a content-addressed image store: each blob lives in a file named
// after the sha256 of its bytes.
type Images struct {
	root     string
	mu       sync.RWMutex
	readOnly bool
	logger   *slog.Logger
}

func newImages(root string, readOnly bool, logger *slog.Logger) *Images {
	return &Images{root: root, readOnly: readOnly, logger: logger}
}

// Root returns the image directory.
func (im *Images) Root() string {
	return im.root
}

func (im *Images) path(id string) (string, error) {
	if err := core.ValidateImageID(id); err != nil {
		return "", err
	}
	return filepath.Join(im.root, id), nil
}

// Put stores data if it decodes as a supported image and returns its id.
// Identical bytes always map to the same id and file.
func (im *Images) Put(ctx context.Context, data []byte) (core.ImageInfo, error) {
	if len(data) == 0 {
		return core.ImageInfo{}, fmt.Errorf("%w: empty data", core.ErrInvalidImage)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return core.ImageInfo{}, fmt.Errorf("%w: %v", core.ErrInvalidImage, err)
	}

	sum := sha256.Sum256(data)
	b := img.Bounds()
	info := core.ImageInfo{
		ID:          hex.EncodeToString(sum[:]),
		Width:       b.Dx(),
		Height:      b.Dy(),
		Format:      format,
		Size:        int64(len(data)),
		Placeholder: placeholder(img),
	}

	if im.readOnly {
		return core.ImageInfo{}, core.ErrReadOnly
	}

	path := filepath.Join(im.root, info.ID)

	im.mu.Lock()
	defer im.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		im.logger.Debug("image already stored", "id", info.ID)
		return info, nil
	}
	if err := os.MkdirAll(im.root, 0755); err != nil {
		return core.ImageInfo{}, fmt.Errorf("%w: %w", core.ErrWriteFailure, err)
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return core.ImageInfo{}, fmt.Errorf("%w: %w", core.ErrWriteFailure, err)
	}
	info.Created = true
	im.logger.Debug("image stored", "id", info.ID, "format", format, "size", info.Size)
	return info, nil
}

// Get returns the bytes of id.
func (im *Images) Get(ctx context.Context, id string) ([]byte, error) {
	path, err := im.path(id)
	if err != nil {
		return nil, err
	}
	im.mu.RLock()
	defer im.mu.RUnlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: image %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", id, err)
	}
	return data, nil
}

// Stat describes a stored image.
func (im *Images) Stat(ctx context.Context, id string) (core.ImageInfo, error) {
	data, err := im.Get(ctx, id)
	if err != nil {
		return core.ImageInfo{}, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return core.ImageInfo{}, fmt.Errorf("%w: image %s: %v", core.ErrCorruptStore, id, err)
	}
	return core.ImageInfo{
		ID:          id,
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		Format:      format,
		Size:        int64(len(data)),
		Placeholder: placeholder(img),
	}, nil
}

// Exists reports whether id is stored. Malformed ids are never stored.
func (im *Images) Exists(ctx context.Context, id string) (bool, error) {
	path, err := im.path(id)
	if err != nil {
		return false, nil
	}
	im.mu.RLock()
	defer im.mu.RUnlock()

	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns every stored id in lexical order.
func (im *Images) List(ctx context.Context) ([]string, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	matches, err := doublestar.Glob(os.DirFS(im.root), "*", doublestar.WithFilesOnly())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	ids := make([]string, 0, len(matches))
	for _, name := range matches {
		if isTempFile(name) || core.ValidateImageID(name) != nil {
			continue
		}
		ids = append(ids, name)
	}
	slices.Sort(ids)
	return ids, nil
}

// Orphans returns the stored ids that no note references.
func (im *Images) Orphans(ctx context.Context, refs core.ReferenceChecker) ([]string, error) {
	ids, err := im.List(ctx)
	if err != nil {
		return nil, err
	}
	var orphans []string
	for _, id := range ids {
		if !refs.References(id) {
			orphans = append(orphans, id)
		}
	}
	return orphans, nil
}

// Delete removes id unconditionally. It reports whether a file was removed.
func (im *Images) Delete(ctx context.Context, id string) (bool, error) {
	path, err := im.path(id)
	if err != nil {
		return false, err
	}
	if im.readOnly {
		return false, core.ErrReadOnly
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.remove(path)
}

// DeleteIfUnreferenced removes id unless refs still points at it. The
// reference check and the removal happen under the store lock so a
// concurrent Put of the same bytes cannot be lost.
func (im *Images) DeleteIfUnreferenced(ctx context.Context, id string, refs core.ReferenceChecker) (bool, error) {
	path, err := im.path(id)
	if err != nil {
		return false, err
	}
	if im.readOnly {
		return false, core.ErrReadOnly
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	if refs != nil && refs.References(id) {
		return false, nil
	}
	return im.remove(path)
}

func (im *Images) remove(path string) (bool, error) {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", core.ErrWriteFailure, err)
	}
	im.logger.Debug("image removed", "id", filepath.Base(path))
	return true, nil
}

var _ core.ImageStorage = (*Images)(nil)

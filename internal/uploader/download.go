package uploader

import (
	"context"
	"fmt"

	"github.com/starford/geocore/internal/checksum"
	"github.com/starford/geocore/internal/storage"
	"github.com/starford/geocore/pkg/geocore"
)

// Downloader is the part of the SDK Fetch needs.
// *geocore.BinaryService satisfies it.
type Downloader interface {
	Download(ctx context.Context, ref geocore.BinaryRef) ([]byte, error)
}

// Fetch downloads binary key of objectID into path under store. It
// reports false, without writing, when the local file already holds the
// same content.
func Fetch(ctx context.Context, d Downloader, store storage.Provider, objectID, key, path string) (bool, error) {
	data, err := d.Download(ctx, geocore.ObjectBinary(objectID, key))
	if err != nil {
		return false, fmt.Errorf("download %s/%s: %w", objectID, key, err)
	}
	if f, err := store.Stat(path); err == nil && f.Checksum == checksum.Sum(data) {
		return false, nil
	}
	if err := store.Write(path, data); err != nil {
		return false, err
	}
	return true, nil
}

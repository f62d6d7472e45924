package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// diskStore keeps zstd compressed clips in a two level directory layout.
//
// TODO: evict least recently used files once the directory exceeds a size
// limit; today it grows without bound.
type diskStore struct {
	basePath string
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

func newDiskStore(basePath string, compressionLevel int) (*diskStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &diskStore{basePath: basePath, encoder: encoder, decoder: decoder}, nil
}

func (d *diskStore) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(d.path(key))
	if err != nil {
		return nil, false
	}

	audio, err := d.decoder.DecodeAll(data, nil)
	if err != nil {
		// Corrupted entry, drop it so it gets synthesized again.
		_ = os.Remove(d.path(key))
		return nil, false
	}
	return audio, true
}

func (d *diskStore) Put(key string, audio []byte) error {
	path := d.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache shard: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".clip-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(d.encoder.EncodeAll(audio, nil)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func (d *diskStore) Close() error {
	d.decoder.Close()
	return d.encoder.Close()
}

func (d *diskStore) path(key string) string {
	return filepath.Join(d.basePath, key[:2], key+".zst")
}

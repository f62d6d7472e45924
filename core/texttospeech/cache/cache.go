// Package cache keeps synthesized utterances around so that repeated phrases
// do not cost another synthesis request.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/koscakluka/ema-avatar/core/texttospeech"
)

const defaultMemoryEntries = 256

type synthesizer interface {
	Synthesize(ctx context.Context, text string, voice texttospeech.VoiceParameters) ([]byte, error)
}

type credentialed interface {
	HasCredentials() bool
}

type formatted interface {
	OutputFormat() texttospeech.OutputFormat
}

// Cache wraps a synthesizer with an in-memory LRU and an optional compressed
// disk tier.
type Cache struct {
	next   synthesizer
	format texttospeech.OutputFormat
	memory *lru.Cache[string, []byte]
	disk   *diskStore

	hits   atomic.Int64
	misses atomic.Int64
}

type options struct {
	memoryEntries    int
	diskDir          string
	compressionLevel int
}

type Option func(*options)

// WithMemoryEntries sets how many clips are kept in memory.
func WithMemoryEntries(entries int) Option {
	return func(o *options) {
		if entries > 0 {
			o.memoryEntries = entries
		}
	}
}

// WithDiskDir enables the persistent tier rooted at dir.
func WithDiskDir(dir string) Option {
	return func(o *options) { o.diskDir = dir }
}

// WithCompressionLevel sets the zstd level (1-4) of the disk tier.
func WithCompressionLevel(level int) Option {
	return func(o *options) {
		if level > 0 {
			o.compressionLevel = level
		}
	}
}

// Stats counts clips served from the cache and misses forwarded to the
// wrapped synthesizer. A Lookup that finds nothing is not a miss.
type Stats struct {
	Hits          int64
	Misses        int64
	MemoryEntries int
}

func New(next synthesizer, opts ...Option) (*Cache, error) {
	o := options{memoryEntries: defaultMemoryEntries, compressionLevel: 2}
	for _, opt := range opts {
		opt(&o)
	}

	memory, err := lru.New[string, []byte](o.memoryEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	c := &Cache{next: next, memory: memory}
	if f, ok := next.(formatted); ok {
		c.format = f.OutputFormat()
	}

	if o.diskDir != "" {
		if c.disk, err = newDiskStore(o.diskDir, o.compressionLevel); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// HasCredentials reports whether the wrapped synthesizer can make requests.
// Cached clips are still served without credentials.
func (c *Cache) HasCredentials() bool {
	if cred, ok := c.next.(credentialed); ok {
		return cred.HasCredentials()
	}
	return c.next != nil
}

func (c *Cache) OutputFormat() texttospeech.OutputFormat {
	return c.format
}

// Lookup returns a cached clip without touching the network.
func (c *Cache) Lookup(text string, voice texttospeech.VoiceParameters) ([]byte, bool) {
	audio, ok := c.get(c.key(text, voice))
	if ok {
		c.hits.Add(1)
	}
	return audio, ok
}

func (c *Cache) Synthesize(ctx context.Context, text string, voice texttospeech.VoiceParameters) ([]byte, error) {
	key := c.key(text, voice)
	if audio, ok := c.get(key); ok {
		c.hits.Add(1)
		return audio, nil
	}
	c.misses.Add(1)
	if c.next == nil {
		return nil, fmt.Errorf("no synthesizer configured")
	}

	audio, err := c.next.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return audio, nil
	}

	c.memory.Add(key, audio)
	if c.disk != nil {
		if err := c.disk.Put(key, audio); err != nil {
			logger.Warn("failed to persist synthesized audio", "error", err)
		}
	}
	return audio, nil
}

func (c *Cache) get(key string) ([]byte, bool) {
	if audio, ok := c.memory.Get(key); ok {
		return audio, true
	}
	if c.disk != nil {
		if audio, ok := c.disk.Get(key); ok {
			c.memory.Add(key, audio)
			return audio, true
		}
	}
	return nil, false
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		MemoryEntries: c.memory.Len(),
	}
}

func (c *Cache) Close() error {
	c.memory.Purge()
	if c.disk != nil {
		return c.disk.Close()
	}
	return nil
}

func (c *Cache) key(text string, voice texttospeech.VoiceParameters) string {
	sum := sha256.Sum256([]byte(string(c.format) + "\x00" + voice.Fingerprint() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

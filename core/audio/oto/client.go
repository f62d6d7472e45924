package oto

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/koscakluka/ema-avatar/core/audio"
)

const pollInterval = 10 * time.Millisecond

var (
	// oto allows a single context per process.
	sharedContext     *oto.Context
	sharedSampleRate  int
	sharedContextErr  error
	sharedContextOnce sync.Once
)

// Client plays mono linear16 audio through oto.
type Client struct {
	context    *oto.Context
	sampleRate int
	mu         sync.Mutex
	closed     bool
}

func NewClient(sampleRate int) (*Client, error) {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}

	sharedContextOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			sharedContextErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		sharedContext = ctx
		sharedSampleRate = sampleRate
	})
	if sharedContextErr != nil {
		return nil, sharedContextErr
	}
	if sharedSampleRate != sampleRate {
		return nil, fmt.Errorf("oto context already running at %d Hz, requested %d Hz", sharedSampleRate, sampleRate)
	}

	return &Client{context: sharedContext, sampleRate: sampleRate}, nil
}

// Play blocks until pcm has been played or ctx is done.
func (c *Client) Play(ctx context.Context, pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("player closed")
	}
	if len(pcm) == 0 {
		return nil
	}

	player := c.context.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return player.Err()
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: c.sampleRate, Format: audio.EncodingLinear16}
}

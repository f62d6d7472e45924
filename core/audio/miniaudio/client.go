package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-avatar/core/audio"
)

// Client plays mono linear16 audio on the default output device.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
}

type ClientOption func(*Client)

// WithSampleRate sets the rate of the audio handed to Play. It has to match
// the synthesized audio.
func WithSampleRate(sampleRate int) ClientOption {
	return func(c *Client) {
		if sampleRate > 0 {
			c.sampleRate = uint32(sampleRate)
		}
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("malgo", "message", message) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{
		audioContext:   audioCtx,
		playbackClient: playbackClient{sampleRate: audio.DefaultSampleRate},
	}
	for _, opt := range opts {
		opt(&client)
	}

	if err := client.playbackClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	return &client, nil
}

// Play queues pcm and blocks until the device has consumed it. Cancelling
// ctx drops whatever has not been played yet.
func (c *Client) Play(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}

	if err := c.playbackClient.SendAudio(pcm); err != nil {
		return err
	}

	played := make(chan struct{})
	c.playbackClient.Mark(func() { close(played) })

	select {
	case <-played:
		return nil
	case <-ctx.Done():
		c.playbackClient.ClearBuffer()
		return ctx.Err()
	}
}

func (c *Client) Close() error {
	_ = c.playbackClient.Uninit()
	if c.audioContext != nil {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
		c.audioContext = nil
	}
	return nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: int(c.sampleRate),
		Format:     audio.EncodingLinear16,
	}
}

package portaudio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-avatar/core/audio"
)

const defaultBufferSize = 1024

// Client plays mono linear16 audio through a blocking PortAudio stream.
type Client struct {
	bufferSize int
	sampleRate int
	stream     *portaudio.Stream

	out []int16
	mu  sync.Mutex
}

type ClientOption func(*Client)

func WithSampleRate(sampleRate int) ClientOption {
	return func(c *Client) {
		if sampleRate > 0 {
			c.sampleRate = sampleRate
		}
	}
}

// WithBufferSize sets the number of frames written per stream write.
func WithBufferSize(frames int) ClientOption {
	return func(c *Client) {
		if frames > 0 {
			c.bufferSize = frames
		}
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{bufferSize: defaultBufferSize, sampleRate: audio.DefaultSampleRate}
	for _, opt := range opts {
		opt(c)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	c.out = make([]int16, c.bufferSize)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(c.sampleRate), c.bufferSize, c.out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open PortAudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start PortAudio stream: %w", err)
	}

	c.stream = stream
	return c, nil
}

// Play writes pcm to the stream one buffer at a time and returns once the
// last buffer has been accepted. The final partial buffer is padded with
// silence.
func (c *Client) Play(ctx context.Context, pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return fmt.Errorf("stream closed")
	}

	frameBytes := c.bufferSize * 2
	for offset := 0; offset < len(pcm); offset += frameBytes {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk := pcm[offset:min(offset+frameBytes, len(pcm))]
		fillSamples(c.out, chunk)
		if err := c.stream.Write(); err != nil {
			return fmt.Errorf("failed to write to PortAudio stream: %w", err)
		}
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return nil
	}

	err := c.stream.Close()
	c.stream = nil
	portaudio.Terminate()
	return err
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: c.sampleRate,
		Format:     audio.EncodingLinear16,
	}
}

// fillSamples decodes little endian samples from chunk into out and zeroes
// the rest of out.
func fillSamples(out []int16, chunk []byte) {
	n := len(chunk) / 2
	for i := range out {
		if i < n {
			out[i] = int16(binary.LittleEndian.Uint16(chunk[2*i:]))
		} else {
			out[i] = 0
		}
	}
}

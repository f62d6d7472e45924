package audio

import "context"

// Player plays raw PCM audio.
type Player interface {
	// Play blocks until pcm has been played or ctx is done.
	Play(ctx context.Context, pcm []byte) error
	EncodingInfo() EncodingInfo
	Close() error
}

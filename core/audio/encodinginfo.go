package audio

import "time"

const (
	DefaultSampleRate = 24000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

// EncodingInfo describes mono PCM audio.
type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16:
		return 0
	}

	return 0
}

// BytesPerSecond returns how many bytes one second of audio takes, or 0 for
// unknown layouts.
func (e EncodingInfo) BytesPerSecond() int {
	size := e.Format.ByteSize()
	if size <= 0 || e.SampleRate <= 0 {
		return 0
	}
	return size * e.SampleRate
}

// Duration returns how long byteCount bytes of audio play for.
func (e EncodingInfo) Duration(byteCount int) time.Duration {
	perSecond := e.BytesPerSecond()
	if perSecond == 0 || byteCount <= 0 {
		return 0
	}
	return time.Duration(byteCount) * time.Second / time.Duration(perSecond)
}

// Silence returns d worth of silent audio.
func (e EncodingInfo) Silence(d time.Duration) []byte {
	perSecond := e.BytesPerSecond()
	if perSecond == 0 || d <= 0 {
		return nil
	}
	n := int(int64(perSecond) * int64(d) / int64(time.Second))
	n -= n % e.Format.ByteSize()
	silence := make([]byte, n)
	if value := e.SilenceValue(); value != 0 {
		for i := range silence {
			silence[i] = value
		}
	}
	return silence
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)

package audio

import "time"

const (
	DefaultSampleRate = 16000
	DefaultFormat     = EncodingLinear16
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: DefaultFormat}
}

// EncodingInfo describes mono audio frames exchanged with the microphone,
// the speaker and the speech engines.
type EncodingInfo struct {
	SampleRate int
	Format     Format
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	default:
		return 0
	}
}

// BytesFor returns the size of d worth of audio, 0 for unknown formats.
func (e EncodingInfo) BytesFor(d time.Duration) int {
	size := e.Format.ByteSize()
	if size <= 0 {
		return 0
	}
	return int(int64(e.SampleRate) * int64(size) * d.Milliseconds() / 1000)
}

// DurationOf returns how long n bytes of audio play for.
func (e EncodingInfo) DurationOf(n int) time.Duration {
	size := e.Format.ByteSize()
	if size <= 0 || e.SampleRate <= 0 {
		return 0
	}
	return time.Duration(n/size) * time.Second / time.Duration(e.SampleRate)
}

type Format string

func (f Format) Name() string {
	return string(f)
}

func (f Format) ByteSize() int {
	switch f {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    Format = "mulaw"
	EncodingALaw     Format = "alaw"
	EncodingLinear16 Format = "linear16"
)

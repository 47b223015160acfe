package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-voice/core/audio"
)

type playbackClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig

	// buffer holds the audio not yet handed to the device, marks are
	// positioned relative to its start.
	buffer []byte
	marks  []playbackMark

	mu       sync.Mutex
	bufferMu sync.Mutex
}

type playbackMark struct {
	name     string
	position int
	callback func(string)
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext, encoding audio.EncodingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels
	sampleRate := uint32(encoding.SampleRate)

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	c.audioContext = audioContext

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (c *playbackClient) SendAudio(audio []byte) error {
	c.mu.Lock()
	started := c.device != nil && c.device.IsStarted()
	c.mu.Unlock()
	if !started {
		return fmt.Errorf("playback device not started")
	}

	c.bufferMu.Lock()
	defer c.bufferMu.Unlock()
	c.buffer = append(c.buffer, audio...)
	return nil
}

// ClearBuffer drops queued audio together with its pending marks, the mark
// callbacks are never called.
func (c *playbackClient) ClearBuffer() {
	c.bufferMu.Lock()
	defer c.bufferMu.Unlock()
	c.buffer = nil
	c.marks = nil
}

// Mark calls callback once all audio sent so far has been played.
func (c *playbackClient) Mark(mark string, callback func(string)) error {
	c.bufferMu.Lock()
	defer c.bufferMu.Unlock()
	c.marks = append(c.marks, playbackMark{
		name:     mark,
		position: len(c.buffer),
		callback: callback,
	})
	return nil
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil
	}

	c.device.Uninit()
	c.device = nil
	c.ClearBuffer()
	return nil
}

func (c *playbackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame
		passed := c.consume(pOutput, need)

		if len(passed) > 0 {
			go func() {
				for _, mark := range passed {
					mark.callback(mark.name)
				}
			}()
		}
	}
}

// consume copies up to need bytes into out and returns the marks the
// played audio went past.
func (c *playbackClient) consume(out []byte, need int) []playbackMark {
	c.bufferMu.Lock()
	defer c.bufferMu.Unlock()

	n := min(need, len(c.buffer))
	copy(out, c.buffer[:n])
	c.buffer = c.buffer[n:]

	var passed []playbackMark
	remaining := c.marks[:0]
	for _, mark := range c.marks {
		if mark.position <= n {
			passed = append(passed, mark)
			continue
		}
		mark.position -= n
		remaining = append(remaining, mark)
	}
	c.marks = remaining
	return passed
}

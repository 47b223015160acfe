package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-voice/core/audio"
)

const (
	capturePeriodFrames = 480
	capturePeriods      = 3
)

var errCaptureNotInitialized = errors.New("capture device not initialized")

// captureClient hands microphone frames to one consumer at a time. A consumer
// is bound to the context it was started with and is released when that
// context ends, unless a newer consumer already replaced it.
type captureClient struct {
	device *malgo.Device

	mu       sync.Mutex
	consumer func(frame []byte)
	// generation identifies the current consumer, a release for an older
	// generation is ignored.
	generation uint64
	release    func() bool
}

func (c *captureClient) Init(audioContext *malgo.AllocatedContext, encoding audio.EncodingInfo) error {
	const channels = 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(encoding.SampleRate)
	config.Capture.Format = format
	config.Capture.Channels = channels
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = capturePeriodFrames
	config.Periods = capturePeriods

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if n == 0 || len(input) < n {
				return
			}
			c.deliver(input[:n])
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	c.mu.Lock()
	c.device = device
	c.mu.Unlock()
	return nil
}

func (c *captureClient) deliver(samples []byte) {
	c.mu.Lock()
	consumer := c.consumer
	c.mu.Unlock()

	if consumer != nil {
		frame := make([]byte, len(samples))
		copy(frame, samples)
		consumer(frame)
	}
}

func (c *captureClient) Start(ctx context.Context, consumer func(frame []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return errCaptureNotInitialized
	}

	c.detachLocked()
	c.generation++
	generation := c.generation
	c.consumer = consumer
	c.release = context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation == generation {
			c.stopLocked()
		}
	})

	if c.device.IsStarted() {
		return nil
	}
	if err := c.device.Start(); err != nil {
		c.detachLocked()
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *captureClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return errCaptureNotInitialized
	}
	return c.stopLocked()
}

func (c *captureClient) stopLocked() error {
	c.detachLocked()
	if c.device == nil || !c.device.IsStarted() {
		return nil
	}
	if err := c.device.Stop(); err != nil {
		logger.Warn("failed to stop capture device", "error", err)
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (c *captureClient) detachLocked() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
	c.consumer = nil
	c.generation++
}

func (c *captureClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detachLocked()
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	return nil
}

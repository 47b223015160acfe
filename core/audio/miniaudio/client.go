package miniaudio

import (
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-voice/core/audio"
)

// Client owns the default microphone and speaker. The microphone has a
// single consumer at a time, so the wake-word detector and speech capture
// take turns using it.
type Client struct {
	// audioContext is only saved to be able to uninitialize it
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient

	encoding audio.EncodingInfo
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("malgo", "message", message) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{
		audioContext: audioCtx,
		encoding:     audio.GetDefaultEncodingInfo(),
	}

	if err := client.playbackClient.Init(audioCtx, client.encoding); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	if err := client.captureClient.Init(audioCtx, client.encoding); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	return &client, nil
}

// StartCapture routes microphone frames to onAudio until ctx ends, replacing
// any previous consumer. The microphone stops once no consumer is left.
func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	return c.captureClient.Start(ctx, onAudio)
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

func (c *Client) Close() {
	var errs error
	if err := c.captureClient.Uninit(); err != nil {
		errs = errors.Join(errs, err)
	}
	if err := c.playbackClient.Uninit(); err != nil {
		errs = errors.Join(errs, err)
	}
	if c.audioContext != nil {
		if err := c.audioContext.Uninit(); err != nil {
			errs = errors.Join(errs, err)
		}
		c.audioContext.Free()
		c.audioContext = nil
	}
	if errs != nil {
		logger.Warn("audio devices did not close cleanly", "error", errs)
	}
}

func (c *Client) SendAudio(audio []byte) error {
	return c.playbackClient.SendAudio(audio)
}

func (c *Client) ClearBuffer() {
	c.playbackClient.ClearBuffer()
}

func (c *Client) Mark(mark string, callback func(string)) error {
	return c.playbackClient.Mark(mark, callback)
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encoding
}

package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/lingualive/tutor-core/core/audio"
)

// Client is a blocking-IO capture/playback client on the default PortAudio
// device. Useful where the miniaudio backend is unavailable.
type Client struct {
	bufferSize   int
	stream       *portaudio.Stream
	pendingAudio []byte

	captureCancel context.CancelFunc

	in  []int16
	out []int16
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open PortAudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start PortAudio stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.stream.Read(); err != nil {
				return fmt.Errorf("failed to read from PortAudio stream: %w", err)
			}

			audioBuffer := bytes.Buffer{}
			binary.Write(&audioBuffer, binary.LittleEndian, c.in)
			onAudio(audioBuffer.Bytes())
		}
	}
}

// StartCapture runs the blocking read loop on its own goroutine so the
// client can stand in wherever the miniaudio one does.
func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	ctx, cancel := context.WithCancel(ctx)
	c.captureCancel = cancel
	go c.Stream(ctx, onAudio)
	return nil
}

func (c *Client) StopCapture() error {
	if c.captureCancel != nil {
		c.captureCancel()
		c.captureCancel = nil
	}
	return c.stream.Stop()
}

func (c *Client) Close() {
	c.stream.Close()
	portaudio.Terminate()
}

func (c *Client) SendAudio(audio []byte) error {
	bufferSize := c.bufferSize * 2

	audio = append(c.pendingAudio, audio...)
	for i := range len(audio)/bufferSize + 1 {
		if (i+1)*bufferSize > len(audio) {
			c.pendingAudio = make([]byte, len(audio)-i*bufferSize)
			copy(c.pendingAudio, audio[i*bufferSize:])
			break
		}

		binary.Read(bytes.NewBuffer(audio[i*bufferSize:(i+1)*bufferSize]), binary.LittleEndian, c.out)
		c.stream.Write()
	}

	return nil
}

func (c *Client) ClearBuffer() {
	c.pendingAudio = make([]byte, 0)
}

// AwaitMark drains whatever audio is still buffered, blocking until it has
// been written out.
func (c *Client) AwaitMark() error {
	bufferSize := c.bufferSize * 2

	audio := c.pendingAudio
	for i := range len(audio)/bufferSize + 1 {
		if (i+1)*bufferSize > len(audio) {
			c.pendingAudio = make([]byte, 0)
			break
		}

		binary.Read(bytes.NewBuffer(audio[i*bufferSize:(i+1)*bufferSize]), binary.LittleEndian, c.out)
		c.stream.Write()
	}
	return nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Encoding:   audio.FormatLinear16,
	}
}

// Package serialio adapts a physical serial line to the byte-buffer-in,
// byte-buffer-out contract the modbus package's Master and Slave sessions
// expect. It owns inter-frame timing (the RTU t3.5/t1 silence intervals)
// and nothing else: framing, CRC and exception handling stay in the codec.
package serialio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"go.bug.st/serial"
)

// ErrRequestTimedOut is returned when the full expected response has not been
// read back before the transport's timeout elapses (including a partial read).
var ErrRequestTimedOut = errors.New("serialio: request timed out")

// ErrShortFrame is returned when the expected response length is larger than
// the largest RTU frame (maxRTUFrameLength).
var ErrShortFrame = errors.New("serialio: short frame")

// maxRTUFrameLength is the largest ADU the RTU wire format allows.
const maxRTUFrameLength = 256

// Transport drives a single serial line on behalf of a Modbus RTU master.
type Transport struct {
	port         serial.Port
	timeout      time.Duration
	lastActivity time.Time
	t35          time.Duration
	t1           time.Duration
	logger       *log.Logger
}

// Config describes how to open and pace a serial line.
type Config struct {
	Device   string
	Speed    int
	DataBits int
	Parity   serial.Parity
	StopBits serial.StopBits
	Timeout  time.Duration
	Logger   *log.Logger
}

// Open opens the serial device described by conf and returns a ready-to-use
// Transport.
func Open(conf Config) (*Transport, error) {
	if conf.Speed == 0 {
		conf.Speed = 19200
	}
	if conf.DataBits == 0 {
		conf.DataBits = 8
	}
	if conf.Timeout == 0 {
		conf.Timeout = 300 * time.Millisecond
	}

	port, err := serial.Open(conf.Device, &serial.Mode{
		BaudRate: conf.Speed,
		DataBits: conf.DataBits,
		Parity:   conf.Parity,
		StopBits: conf.StopBits,
	})
	if err != nil {
		return nil, fmt.Errorf("serialio: failed to open %s: %w", conf.Device, err)
	}

	if err := port.SetReadTimeout(10 * time.Millisecond); err != nil {
		port.Close()
		return nil, err
	}

	t := &Transport{
		port:    port,
		timeout: conf.Timeout,
		t1:      charTime(conf.Speed),
		logger:  conf.Logger,
	}
	if t.logger == nil {
		t.logger = log.New(os.Stderr, "serialio: ", log.LstdFlags)
	}

	if conf.Speed >= 19200 {
		// fixed 1750us t3.5 at or above 19200 bauds (RTU inter-frame timing)
		t.t35 = 1750 * time.Microsecond
	} else {
		t.t35 = (t.t1 * 35) / 10
	}

	return t, nil
}

// Close closes the underlying serial port.
func (t *Transport) Close() error {
	return t.port.Close()
}

// Execute sends a built request frame and, unless expectedResponseLength is
// 0 (a broadcast, which draws no reply), reads back exactly that many bytes.
func (t *Transport) Execute(request []byte, expectedResponseLength int) ([]byte, error) {
	if err := t.waitForSilence(); err != nil {
		return nil, err
	}

	ts := time.Now()
	n, err := t.port.Write(request)
	if err != nil {
		return nil, err
	}
	t.lastActivity = ts.Add(time.Duration(n) * t.t1)

	if expectedResponseLength == 0 {
		// broadcast: no reply expected, but still observe inter-frame delay
		// before the caller might send the next request
		t.sleepUntilSilent()
		return nil, nil
	}

	t.sleepUntilSilent()

	response, err := t.readExact(expectedResponseLength)
	if err == nil {
		t.lastActivity = time.Now()
	}

	return response, err
}

func (t *Transport) readExact(n int) ([]byte, error) {
	if n > maxRTUFrameLength {
		return nil, ErrShortFrame
	}

	buf := make([]byte, n)
	deadline := time.Now().Add(t.timeout)

	read := 0
	for read < n {
		if time.Now().After(deadline) {
			return nil, ErrRequestTimedOut
		}
		m, err := t.port.Read(buf[read:])
		if err != nil {
			return nil, err
		}
		if m == 0 {
			continue
		}
		read += m
	}

	if read != n {
		return nil, io.ErrUnexpectedEOF
	}

	return buf, nil
}

func (t *Transport) waitForSilence() error {
	quiet := time.Since(t.lastActivity.Add(t.t35))
	if quiet < 0 {
		time.Sleep(-quiet)
	}
	return nil
}

func (t *Transport) sleepUntilSilent() {
	until := t.lastActivity.Add(t.t35)
	if d := time.Until(until); d > 0 {
		time.Sleep(d)
	}
}

// charTime returns how long one RTU byte (1 start + 8 data + 1 parity/stop +
// 1 stop bit) takes to transmit at the given baud rate.
func charTime(speedBps int) time.Duration {
	return 11 * time.Second / time.Duration(speedBps)
}

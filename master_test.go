package modbus

import (
	"bytes"
	"errors"
	"testing"
)

func TestBuildRequest03(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	err := m.BuildRequest03(0x11, 0x006b, 0x0003)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []byte{0x11, 0x03, 0x00, 0x6b, 0x00, 0x03, 0x76, 0x87}
	if !bytes.Equal(m.Request(), want) {
		t.Errorf("expected %x, got %x", want, m.Request())
	}

	if m.PredictedResponseLength() != 4+1+2*3 {
		t.Errorf("expected predicted response length of 11, got %v", m.PredictedResponseLength())
	}
}

func TestBuildRequest03RejectsBroadcast(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest03(0, 0, 1); !errors.Is(err, ErrUnexpectedParameters) {
		t.Errorf("expected ErrUnexpectedParameters, got %v", err)
	}
}

func TestBuildRequest03RejectsOutOfRangeCount(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest03(1, 0, 0); !errors.Is(err, ErrUnexpectedParameters) {
		t.Errorf("expected ErrUnexpectedParameters for count 0, got %v", err)
	}
	if err := m.BuildRequest03(1, 0, 126); !errors.Is(err, ErrUnexpectedParameters) {
		t.Errorf("expected ErrUnexpectedParameters for count 126, got %v", err)
	}
}

func TestParseResponse03(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest03(0x11, 0x006b, 0x0003); err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	m.SetResponse([]byte{0x11, 0x03, 0x06, 0xae, 0x41, 0x56, 0x52, 0x43, 0x40, 0x49, 0xad})

	if err := m.ParseResponse(); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	data := m.Data()
	if data.Type != HoldingRegister {
		t.Errorf("expected type HoldingRegister, got %v", data.Type)
	}
	if data.Count != 3 {
		t.Errorf("expected count 3, got %v", data.Count)
	}

	want := []uint16{0xae41, 0x5652, 0x4340}
	if len(data.RegisterWords) != len(want) {
		t.Fatalf("expected %v registers, got %v", len(want), len(data.RegisterWords))
	}
	for i := range want {
		if data.RegisterWords[i] != want[i] {
			t.Errorf("register %d: expected 0x%04x, got 0x%04x", i, want[i], data.RegisterWords[i])
		}
	}
}

func TestParseResponse03BadCRC(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest03(0x11, 0x006b, 0x0003); err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	// flip the last CRC byte
	m.SetResponse([]byte{0x11, 0x03, 0x06, 0xae, 0x41, 0x56, 0x52, 0x43, 0x40, 0x49, 0xae})

	if err := m.ParseResponse(); !errors.Is(err, ErrBadCRC) {
		t.Errorf("expected ErrBadCRC, got %v", err)
	}
}

func TestParseResponse03Exception(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest03(0x11, 5, 1); err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	m.SetResponse([]byte{0x11, 0x83, 0x02, 0xc1, 0x34})

	err := m.ParseResponse()

	var exc *ExceptionError
	if !errors.As(err, &exc) {
		t.Fatalf("expected *ExceptionError, got %v", err)
	}
	if exc.Address != 0x11 || exc.Function != 0x83 || exc.Code != 0x02 {
		t.Errorf("unexpected exception record: %+v", exc)
	}

	got := m.Exception()
	if got.SlaveAddress != 0x11 || got.Function != 0x83 || got.Code != 0x02 {
		t.Errorf("unexpected session exception record: %+v", got)
	}
}

func TestBuildRequest05CoercesValue(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest05(0x11, 0x00ac, 0xffff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []byte{0x11, 0x05, 0x00, 0xac, 0xff, 0x00, 0x4e, 0x8b}
	if !bytes.Equal(m.Request(), want) {
		t.Errorf("expected %x, got %x", want, m.Request())
	}
}

func TestParseResponse05(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest05(0x11, 0x00ac, 1); err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	m.SetResponse(append([]byte{}, m.Request()...))

	if err := m.ParseResponse(); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	data := m.Data()
	if data.Type != Coil || data.Count != 1 {
		t.Fatalf("unexpected data record: %+v", data)
	}
	bits := decodeBools(1, data.CoilBytes)
	if !bits[0] {
		t.Errorf("expected coil[0] == true")
	}
}

func TestBuildRequest06(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest06(0x11, 0x0001, 0x0003); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []byte{0x11, 0x06, 0x00, 0x01, 0x00, 0x03, 0x9a, 0x9b}
	if !bytes.Equal(m.Request(), want) {
		t.Errorf("expected %x, got %x", want, m.Request())
	}
}

func TestBuildRequestBroadcastHasZeroPredictedLength(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest06(0, 0, 0x1234); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.PredictedResponseLength() != 0 {
		t.Errorf("expected predicted response length 0 for broadcast, got %v", m.PredictedResponseLength())
	}
}

func TestBuildRequest15And16(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest15(0x11, 0, 3, []bool{true, false, true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.PredictedResponseLength() != 8 {
		t.Errorf("expected predicted response length 8, got %v", m.PredictedResponseLength())
	}

	if err := m.BuildRequest16(0x11, 0, 2, []uint16{1, 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.PredictedResponseLength() != 8 {
		t.Errorf("expected predicted response length 8, got %v", m.PredictedResponseLength())
	}
}

func TestBuildRequest15RejectsOutOfRangeCount(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest15(1, 0, 1969, make([]bool, 1969)); !errors.Is(err, ErrUnexpectedParameters) {
		t.Errorf("expected ErrUnexpectedParameters, got %v", err)
	}
}

func TestParseResponse15(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest15(0x11, 0x13, 10, make([]bool, 10)); err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	res := []byte{0x11, 0x0f, 0x00, 0x13, 0x00, 0x0a}
	var c crc
	c.init()
	c.add(res)
	res = append(res, c.value()...)
	m.SetResponse(res)

	if err := m.ParseResponse(); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	data := m.Data()
	if data.StartIndex != 0x13 || data.Count != 10 || data.Type != Coil {
		t.Errorf("unexpected data record: %+v", data)
	}
}

func TestBuildRequest22(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest22(0x11, 0x0004, 0x00f2, 0x0025); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.PredictedResponseLength() != 10 {
		t.Errorf("expected predicted response length 10, got %v", m.PredictedResponseLength())
	}
	if len(m.Request()) != 10 {
		t.Errorf("expected a 10-byte request, got %v bytes", len(m.Request()))
	}
}

func TestParseResponseShortFrame(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest03(1, 0, 1); err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	m.SetResponse([]byte{0x01, 0x03})

	if err := m.ParseResponse(); !errors.Is(err, ErrUnexpectedParameters) {
		t.Errorf("expected ErrUnexpectedParameters, got %v", err)
	}
}

func TestParseResponseUnsupportedFunction(t *testing.T) {
	m := NewMaster()
	defer m.Close()

	if err := m.BuildRequest03(1, 0, 1); err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	res := []byte{0x01, 0x17, 0x00}
	var c crc
	c.init()
	c.add(res)
	res = append(res, c.value()...)
	m.SetResponse(res)

	if err := m.ParseResponse(); !errors.Is(err, ErrProtocolError) {
		t.Errorf("expected ErrProtocolError, got %v", err)
	}
}

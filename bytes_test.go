package modbus

import (
	"bytes"
	"testing"
)

func TestUint16ToBytesBigEndian(t *testing.T) {
	want := []byte{0xae, 0x41}
	if got := uint16ToBytes(0xae41); !bytes.Equal(got, want) {
		t.Errorf("expected %x, got %x", want, got)
	}
}

func TestUint16sRoundTrip(t *testing.T) {
	in := []uint16{0xae41, 0x5652, 0x4340}
	packed := uint16sToBytes(in)
	out := bytesToUint16s(packed)

	if len(out) != len(in) {
		t.Fatalf("expected %d words, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("word %d: expected 0x%04x, got 0x%04x", i, in[i], out[i])
		}
	}
}

func TestEncodeDecodeBoolsRoundTrip(t *testing.T) {
	in := []bool{true, false, true, true, false, false, false, false, true, true}
	packed := encodeBools(in)

	want := []byte{0x0d, 0x03}
	if !bytes.Equal(packed, want) {
		t.Fatalf("expected %08b, got %08b", want, packed)
	}

	out := decodeBools(uint16(len(in)), packed)
	if len(out) != len(in) {
		t.Fatalf("expected %d bools, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("bit %d: expected %v, got %v", i, in[i], out[i])
		}
	}
}

func TestByteCountForBits(t *testing.T) {
	cases := []struct {
		count uint16
		want  int
	}{
		{0, 0},
		{1, 1},
		{8, 1},
		{9, 2},
		{2000, 250},
	}
	for _, c := range cases {
		if got := byteCountForBits(c.count); got != c.want {
			t.Errorf("byteCountForBits(%d): expected %d, got %d", c.count, c.want, got)
		}
	}
}

package modbus

import "encoding/binary"

// All multi-byte fields inside a Modbus RTU payload are big-endian on the
// wire; only the trailing CRC is little-endian (handled by crc.value()).

func uint16ToBytes(v uint16) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, v)
	return out
}

func uint16sToBytes(in []uint16) []byte {
	out := make([]byte, 0, len(in)*2)
	for _, v := range in {
		out = append(out, uint16ToBytes(v)...)
	}
	return out
}

func bytesToUint16(in []byte) uint16 {
	return binary.BigEndian.Uint16(in)
}

func bytesToUint16s(in []byte) []uint16 {
	out := make([]uint16, 0, len(in)/2)
	for i := 0; i < len(in); i += 2 {
		out = append(out, bytesToUint16(in[i:i+2]))
	}
	return out
}

// encodeBools packs a slice of bools into bytes, LSB-first within each byte
// (the first bool occupies bit 0 of byte 0), as required for coil and
// discrete input payloads.
func encodeBools(in []bool) []byte {
	byteCount := len(in) / 8
	if len(in)%8 != 0 {
		byteCount++
	}

	out := make([]byte, byteCount)
	for i, v := range in {
		if v {
			out[i/8] |= 0x01 << uint(i%8)
		}
	}

	return out
}

// decodeBools unpacks quantity bools from in, LSB-first within each byte.
func decodeBools(quantity uint16, in []byte) []bool {
	out := make([]bool, 0, quantity)
	for i := uint(0); i < uint(quantity); i++ {
		out = append(out, (in[i/8]>>(i%8))&0x01 == 0x01)
	}
	return out
}

// byteCountForBits returns ceil(count/8), the number of bytes needed to pack
// count coils/discrete inputs.
func byteCountForBits(count uint16) int {
	n := int(count) / 8
	if count%8 != 0 {
		n++
	}
	return n
}

package modbus

// Master request builders. Every builder shares the same preamble: validate
// arguments, clear the previous request's length and prediction, allocate a
// fresh request buffer, populate address/function/payload, and append the CRC.

func (m *Master) beginRequest(address uint8, function uint8, payload []byte) error {
	total := 2 + len(payload) + 2 // address + function + payload + crc

	buf, err := newRequestBuffer(total)
	if err != nil {
		m.logger.Errorf("failed to allocate a %d-byte request", total)
		return err
	}

	buf[0] = address
	buf[1] = function
	copy(buf[2:], payload)

	var c crc
	c.init()
	c.add(buf[:total-2])
	copy(buf[total-2:], c.value())

	m.request.set(buf)

	return nil
}

func (m *Master) resetBuild() {
	m.request.reset()
	m.predictedResponseLength = 0
}

// BuildRequest01 builds a read-coils (0x01) request.
func (m *Master) BuildRequest01(address uint8, index uint16, count uint16) error {
	return m.buildReadRequest(fcReadCoils, address, index, count)
}

// BuildRequest02 builds a read-discrete-inputs (0x02) request.
func (m *Master) BuildRequest02(address uint8, index uint16, count uint16) error {
	return m.buildReadRequest(fcReadDiscreteInputs, address, index, count)
}

func (m *Master) buildReadRequest(function uint8, address uint8, index uint16, count uint16) error {
	m.resetBuild()

	if address == 0 {
		m.logger.Error("read requests cannot be broadcast")
		return ErrUnexpectedParameters
	}
	if count < 1 || count > 2000 {
		m.logger.Errorf("count %d is out of the [1, 2000] range", count)
		return ErrUnexpectedParameters
	}

	payload := append(uint16ToBytes(index), uint16ToBytes(count)...)
	if err := m.beginRequest(address, function, payload); err != nil {
		return err
	}

	m.predictedResponseLength = 4 + 1 + byteCountForBits(count)

	return nil
}

// BuildRequest03 builds a read-holding-registers (0x03) request.
func (m *Master) BuildRequest03(address uint8, index uint16, count uint16) error {
	return m.buildReadRegistersRequest(fcReadHoldingRegisters, address, index, count)
}

// BuildRequest04 builds a read-input-registers (0x04) request.
func (m *Master) BuildRequest04(address uint8, index uint16, count uint16) error {
	return m.buildReadRegistersRequest(fcReadInputRegisters, address, index, count)
}

func (m *Master) buildReadRegistersRequest(function uint8, address uint8, index uint16, count uint16) error {
	m.resetBuild()

	if address == 0 {
		m.logger.Error("read requests cannot be broadcast")
		return ErrUnexpectedParameters
	}
	if count < 1 || count > 125 {
		m.logger.Errorf("count %d is out of the [1, 125] range", count)
		return ErrUnexpectedParameters
	}

	payload := append(uint16ToBytes(index), uint16ToBytes(count)...)
	if err := m.beginRequest(address, function, payload); err != nil {
		return err
	}

	m.predictedResponseLength = 4 + 1 + 2*int(count)

	return nil
}

// BuildRequest05 builds a write-single-coil (0x05) request. value is coerced
// to the wire convention: any nonzero value encodes as 0xff00, zero as 0x0000.
func (m *Master) BuildRequest05(address uint8, index uint16, value uint16) error {
	m.resetBuild()

	wire := uint16(0x0000)
	if value != 0 {
		wire = 0xff00
	}

	payload := append(uint16ToBytes(index), uint16ToBytes(wire)...)
	if err := m.beginRequest(address, fcWriteSingleCoil, payload); err != nil {
		return err
	}

	if address != 0 {
		m.predictedResponseLength = 8
	}

	return nil
}

// BuildRequest06 builds a write-single-register (0x06) request.
func (m *Master) BuildRequest06(address uint8, index uint16, value uint16) error {
	m.resetBuild()

	payload := append(uint16ToBytes(index), uint16ToBytes(value)...)
	if err := m.beginRequest(address, fcWriteSingleRegister, payload); err != nil {
		return err
	}

	if address != 0 {
		m.predictedResponseLength = 8
	}

	return nil
}

// BuildRequest15 builds a write-multiple-coils (0x0f) request.
func (m *Master) BuildRequest15(address uint8, index uint16, count uint16, bitValues []bool) error {
	m.resetBuild()

	if count < 1 || count > 1968 {
		m.logger.Errorf("count %d is out of the [1, 1968] range", count)
		return ErrUnexpectedParameters
	}
	if bitValues == nil {
		m.logger.Error("bit values must not be nil")
		return ErrUnexpectedParameters
	}

	packed := encodeBools(bitValues[:count])
	payload := append(uint16ToBytes(index), uint16ToBytes(count)...)
	payload = append(payload, uint8(len(packed)))
	payload = append(payload, packed...)

	if err := m.beginRequest(address, fcWriteMultipleCoils, payload); err != nil {
		return err
	}

	if address != 0 {
		m.predictedResponseLength = 8
	}

	return nil
}

// BuildRequest16 builds a write-multiple-registers (0x10) request.
func (m *Master) BuildRequest16(address uint8, index uint16, count uint16, wordValues []uint16) error {
	m.resetBuild()

	if count < 1 || count > 123 {
		m.logger.Errorf("count %d is out of the [1, 123] range", count)
		return ErrUnexpectedParameters
	}
	if wordValues == nil {
		m.logger.Error("register values must not be nil")
		return ErrUnexpectedParameters
	}

	packed := uint16sToBytes(wordValues[:count])
	payload := append(uint16ToBytes(index), uint16ToBytes(count)...)
	payload = append(payload, uint8(len(packed)))
	payload = append(payload, packed...)

	if err := m.beginRequest(address, fcWriteMultipleRegisters, payload); err != nil {
		return err
	}

	if address != 0 {
		m.predictedResponseLength = 8
	}

	return nil
}

// BuildRequest22 builds a mask-write-register (0x16) request.
func (m *Master) BuildRequest22(address uint8, index uint16, andMask uint16, orMask uint16) error {
	m.resetBuild()

	payload := uint16ToBytes(index)
	payload = append(payload, uint16ToBytes(andMask)...)
	payload = append(payload, uint16ToBytes(orMask)...)

	if err := m.beginRequest(address, fcMaskWriteRegister, payload); err != nil {
		return err
	}

	if address != 0 {
		m.predictedResponseLength = 10
	}

	return nil
}

package modbus

// ParseResponse validates the response currently held by the session against
// the request that produced it, and populates either Data or Exception.
//
// Returns ErrUnexpectedParameters if either buffer is too short to inspect,
// ErrBadCRC on a CRC mismatch (request or response), an *ExceptionError if
// the slave replied with a protocol exception, ErrProtocolError (FrameError)
// if the response is internally inconsistent with the request, or
// ErrProtocolError (ParseError) if the response function code isn't one this
// decoder supports.
func (m *Master) ParseResponse() error {
	req := m.request.Bytes
	res := m.response.Bytes

	if len(req) < 4 || len(res) < 4 {
		m.logger.Error("request or response is too short to parse")
		return ErrUnexpectedParameters
	}

	if !verifyFrameCRC(req) {
		m.logger.Error("request crc is invalid")
		return ErrBadCRC
	}
	if !verifyFrameCRC(res) {
		m.logger.Error("response crc is invalid")
		return ErrBadCRC
	}

	m.data.reset()
	m.exception.reset()

	resFunction := res[1]

	if resFunction&exceptionBit != 0 && len(res) == 5 {
		m.exception = Exception{
			SlaveAddress: res[0],
			Function:     resFunction,
			Code:         res[2],
		}
		return &ExceptionError{Address: res[0], Function: resFunction, Code: res[2]}
	}

	switch resFunction {
	case fcReadCoils, fcReadDiscreteInputs:
		return m.parseReadBitsResponse(resFunction)
	case fcReadHoldingRegisters, fcReadInputRegisters:
		return m.parseReadRegistersResponse(resFunction)
	case fcWriteSingleCoil:
		return m.parseWriteSingleCoilResponse()
	case fcWriteSingleRegister:
		return m.parseWriteSingleRegisterResponse()
	case fcWriteMultipleCoils:
		return m.parseWriteMultipleResponse(fcWriteMultipleCoils)
	case fcWriteMultipleRegisters:
		return m.parseWriteMultipleResponse(fcWriteMultipleRegisters)
	case fcMaskWriteRegister:
		return m.parseMaskWriteRegisterResponse()
	default:
		m.logger.Warningf("unsupported response function code 0x%02x", resFunction)
		return ErrProtocolError
	}
}

// verifyFrameCRC checks the trailing 2-byte little-endian CRC of a frame
// against the CRC computed over the rest of the frame.
func verifyFrameCRC(frame []byte) bool {
	if len(frame) < 4 {
		return false
	}
	var c crc
	c.init()
	c.add(frame[:len(frame)-2])
	return c.isEqual(frame[len(frame)-2], frame[len(frame)-1])
}

func (m *Master) parseReadBitsResponse(function uint8) error {
	req := m.request.Bytes
	res := m.response.Bytes

	if len(req) != 8 {
		return ErrProtocolError
	}
	if req[0] == 0 || res[0] != req[0] || res[1] != req[1] {
		return ErrProtocolError
	}

	byteCount := int(res[2])
	if len(res) != 5+byteCount {
		return ErrProtocolError
	}
	count := bytesToUint16(req[4:6])
	if byteCount != byteCountForBits(count) || byteCount < 1 || byteCount > 250 {
		return ErrProtocolError
	}

	coilBytes := make([]byte, byteCount)
	copy(coilBytes, res[3:3+byteCount])

	dataType := HoldingRegister
	if function == fcReadCoils {
		dataType = Coil
	} else {
		dataType = DiscreteInput
	}

	m.data = Data{
		SlaveAddress: res[0],
		StartIndex:   bytesToUint16(req[2:4]),
		Count:        count,
		ByteLength:   byteCount,
		Type:         dataType,
		Function:     function,
		CoilBytes:    coilBytes,
	}

	return nil
}

func (m *Master) parseReadRegistersResponse(function uint8) error {
	req := m.request.Bytes
	res := m.response.Bytes

	if len(req) != 8 {
		return ErrProtocolError
	}
	if req[0] == 0 || res[0] != req[0] || res[1] != req[1] {
		return ErrProtocolError
	}

	byteCount := int(res[2])
	if len(res) != 5+byteCount {
		return ErrProtocolError
	}
	count := bytesToUint16(req[4:6])
	if byteCount != 2*int(count) || byteCount < 1 || byteCount > 250 {
		return ErrProtocolError
	}

	words := bytesToUint16s(res[3 : 3+byteCount])

	dataType := HoldingRegister
	if function == fcReadInputRegisters {
		dataType = InputRegister
	}

	m.data = Data{
		SlaveAddress:  res[0],
		StartIndex:    bytesToUint16(req[2:4]),
		Count:         count,
		ByteLength:    byteCount,
		Type:          dataType,
		Function:      function,
		RegisterWords: words,
	}

	return nil
}

func (m *Master) parseWriteSingleCoilResponse() error {
	req := m.request.Bytes
	res := m.response.Bytes

	if len(res) != 8 || len(req) != 8 {
		return ErrProtocolError
	}
	if res[0] != req[0] || res[1] != req[1] {
		return ErrProtocolError
	}
	if res[2] != req[2] || res[3] != req[3] || res[4] != req[4] || res[5] != req[5] {
		return ErrProtocolError
	}

	value := bytesToUint16(res[4:6])

	m.data = Data{
		SlaveAddress: res[0],
		StartIndex:   bytesToUint16(res[2:4]),
		Count:        1,
		Type:         Coil,
		Function:     fcWriteSingleCoil,
		CoilBytes:    encodeBools([]bool{value != 0}),
	}

	return nil
}

func (m *Master) parseWriteSingleRegisterResponse() error {
	req := m.request.Bytes
	res := m.response.Bytes

	if len(res) != 8 || len(req) != 8 {
		return ErrProtocolError
	}
	if res[0] != req[0] || res[1] != req[1] {
		return ErrProtocolError
	}
	if res[2] != req[2] || res[3] != req[3] || res[4] != req[4] || res[5] != req[5] {
		return ErrProtocolError
	}

	m.data = Data{
		SlaveAddress:  res[0],
		StartIndex:    bytesToUint16(res[2:4]),
		Count:         1,
		Type:          HoldingRegister,
		Function:      fcWriteSingleRegister,
		RegisterWords: []uint16{bytesToUint16(res[4:6])},
	}

	return nil
}

func (m *Master) parseWriteMultipleResponse(function uint8) error {
	req := m.request.Bytes
	res := m.response.Bytes

	if len(res) != 8 {
		return ErrProtocolError
	}
	if len(req) < 7 {
		return ErrProtocolError
	}

	byteCount := int(req[6])
	if len(req) != 9+byteCount {
		return ErrProtocolError
	}

	if res[0] != req[0] || res[1] != req[1] {
		return ErrProtocolError
	}
	if res[2] != req[2] || res[3] != req[3] || res[4] != req[4] || res[5] != req[5] {
		return ErrProtocolError
	}

	index := bytesToUint16(res[2:4])
	count := bytesToUint16(res[4:6])

	dataType := Coil
	if function == fcWriteMultipleRegisters {
		dataType = HoldingRegister
		if count > 123 {
			return ErrProtocolError
		}
	}

	m.data = Data{
		SlaveAddress: res[0],
		StartIndex:   index,
		Count:        count,
		Type:         dataType,
		Function:     function,
	}

	return nil
}

func (m *Master) parseMaskWriteRegisterResponse() error {
	req := m.request.Bytes
	res := m.response.Bytes

	if len(req) != 10 || len(res) != 10 {
		return ErrProtocolError
	}
	if res[0] != req[0] || res[1] != req[1] {
		return ErrProtocolError
	}
	for i := 2; i < 8; i++ {
		if res[i] != req[i] {
			return ErrProtocolError
		}
	}

	m.data = Data{
		SlaveAddress:  res[0],
		StartIndex:    bytesToUint16(res[2:4]),
		Count:         1,
		Type:          HoldingRegister,
		Function:      fcMaskWriteRegister,
		RegisterWords: []uint16{bytesToUint16(res[4:6]), bytesToUint16(res[6:8])}, // {andMask, orMask}
	}

	return nil
}

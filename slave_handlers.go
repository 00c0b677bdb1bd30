package modbus

// fail reports a protocol-level violation: on a non-broadcast request it
// builds and returns an exception frame, on a broadcast it is silently
// dropped (no response, no error).
func (s *Slave) fail(broadcast bool, address uint8, function uint8, code uint8) error {
	if broadcast {
		return nil
	}
	return s.buildException(address, function, code)
}

func (s *Slave) handleReadBits(broadcast bool, function uint8, bank BitView, bankCount int) error {
	req := s.request.Bytes
	address := req[0]

	if len(req) != 8 {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}

	index := bytesToUint16(req[2:4])
	count := bytesToUint16(req[4:6])

	if count < 1 || count > 2000 {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}
	if uint32(index)+uint32(count) > uint32(bankCount) {
		return s.fail(broadcast, address, function, exIllegalDataAddress)
	}

	if broadcast {
		return nil
	}

	bits := make([]bool, count)
	for i := uint16(0); i < count; i++ {
		bits[i], _ = bank.Get(int(index) + int(i))
	}
	packed := encodeBools(bits)
	payload := append([]byte{uint8(len(packed))}, packed...)

	return s.buildResponse(false, address, function, payload)
}

func (s *Slave) handleReadRegisters(broadcast bool, function uint8, bank []uint16) error {
	req := s.request.Bytes
	address := req[0]

	if len(req) != 8 {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}

	index := bytesToUint16(req[2:4])
	count := bytesToUint16(req[4:6])

	if count < 1 || count > 125 {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}
	if uint32(index)+uint32(count) > uint32(len(bank)) {
		return s.fail(broadcast, address, function, exIllegalDataAddress)
	}

	if broadcast {
		return nil
	}

	words := make([]uint16, count)
	copy(words, bank[index:int(index)+int(count)])
	packed := uint16sToBytes(words)
	payload := append([]byte{uint8(len(packed))}, packed...)

	return s.buildResponse(false, address, function, payload)
}

func (s *Slave) handleWriteSingleCoil(broadcast bool) error {
	req := s.request.Bytes
	address := req[0]
	function := fcWriteSingleCoil

	if len(req) != 8 {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}

	index := bytesToUint16(req[2:4])
	value := bytesToUint16(req[4:6])

	if value != 0x0000 && value != 0xff00 {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}
	if int(index) >= s.coilCount {
		return s.fail(broadcast, address, function, exIllegalDataAddress)
	}

	protected, _ := s.coilMask.Get(int(index))
	if protected {
		return s.fail(broadcast, address, function, exServerDeviceFailure)
	}

	s.coils.Set(int(index), value == 0xff00)

	if broadcast {
		return nil
	}

	return s.buildResponse(false, address, function, req[2:6])
}

func (s *Slave) handleWriteSingleRegister(broadcast bool) error {
	req := s.request.Bytes
	address := req[0]
	function := fcWriteSingleRegister

	if len(req) != 8 {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}

	index := bytesToUint16(req[2:4])
	value := bytesToUint16(req[4:6])

	if int(index) >= len(s.holdingRegisters) {
		return s.fail(broadcast, address, function, exIllegalDataAddress)
	}

	protected, _ := s.registerMask.Get(int(index))
	if protected {
		return s.fail(broadcast, address, function, exServerDeviceFailure)
	}

	s.holdingRegisters[index] = value

	if broadcast {
		return nil
	}

	return s.buildResponse(false, address, function, req[2:6])
}

func (s *Slave) handleWriteMultipleCoils(broadcast bool) error {
	req := s.request.Bytes
	address := req[0]
	function := fcWriteMultipleCoils

	if len(req) < 7 {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}

	byteCount := int(req[6])
	if len(req) != 9+byteCount {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}

	index := bytesToUint16(req[2:4])
	count := bytesToUint16(req[4:6])

	if byteCount == 0 || count == 0 || byteCountForBits(count) != byteCount || count > 1968 {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}
	if uint32(index)+uint32(count) > uint32(s.coilCount) {
		return s.fail(broadcast, address, function, exIllegalDataAddress)
	}

	protected, _ := s.coilMask.AnySet(int(index), int(count))
	if protected {
		return s.fail(broadcast, address, function, exServerDeviceFailure)
	}

	bits := decodeBools(count, req[7:7+byteCount])
	for i, v := range bits {
		s.coils.Set(int(index)+i, v)
	}

	if broadcast {
		return nil
	}

	payload := append(uint16ToBytes(index), uint16ToBytes(count)...)
	return s.buildResponse(false, address, function, payload)
}

func (s *Slave) handleWriteMultipleRegisters(broadcast bool) error {
	req := s.request.Bytes
	address := req[0]
	function := fcWriteMultipleRegisters

	if len(req) < 7 {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}

	byteCount := int(req[6])
	if len(req) != 9+byteCount {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}

	index := bytesToUint16(req[2:4])
	count := bytesToUint16(req[4:6])

	if count == 0 || byteCount != 2*int(count) || count > 123 {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}
	if uint32(index)+uint32(count) > uint32(len(s.holdingRegisters)) {
		return s.fail(broadcast, address, function, exIllegalDataAddress)
	}

	protected, _ := s.registerMask.AnySet(int(index), int(count))
	if protected {
		return s.fail(broadcast, address, function, exServerDeviceFailure)
	}

	words := bytesToUint16s(req[7 : 7+byteCount])
	copy(s.holdingRegisters[index:int(index)+int(count)], words)

	if broadcast {
		return nil
	}

	payload := append(uint16ToBytes(index), uint16ToBytes(count)...)
	return s.buildResponse(false, address, function, payload)
}

func (s *Slave) handleMaskWriteRegister(broadcast bool) error {
	req := s.request.Bytes
	address := req[0]
	function := fcMaskWriteRegister

	if len(req) != 10 {
		return s.fail(broadcast, address, function, exIllegalDataValue)
	}

	index := bytesToUint16(req[2:4])
	andMask := bytesToUint16(req[4:6])
	orMask := bytesToUint16(req[6:8])

	if int(index) >= len(s.holdingRegisters) {
		return s.fail(broadcast, address, function, exIllegalDataAddress)
	}

	protected, _ := s.registerMask.Get(int(index))
	if protected {
		return s.fail(broadcast, address, function, exServerDeviceFailure)
	}

	s.holdingRegisters[index] = (s.holdingRegisters[index] & andMask) | (orMask &^ andMask)

	if broadcast {
		return nil
	}

	return s.buildResponse(false, address, function, req[2:8])
}

package modbus

import "log"

// Slave parses incoming Modbus RTU requests against a fixed set of data
// banks and builds the matching response (or exception) frame. Like Master,
// a Slave is not safe for concurrent use by itself, though distinct
// sessions never interfere with each other.
type Slave struct {
	logger *logger

	address uint8

	holdingRegisters []uint16
	inputRegisters   []uint16
	coils            BitView
	discreteInputs   BitView
	coilCount        int
	discreteCount    int

	registerMask BitView
	coilMask     BitView

	request  frame
	response frame
}

// SlaveOption configures a Slave at construction time.
type SlaveOption func(*Slave)

// WithSlaveLogger sets a custom log sink (defaults to os.Stderr).
func WithSlaveLogger(l *log.Logger) SlaveOption {
	return func(s *Slave) {
		s.logger = newLogger("modbus-slave", l)
	}
}

// BankSizes declares the element counts of a slave's four data banks.
type BankSizes struct {
	RegisterCount      int
	InputRegisterCount int
	CoilCount          int
	DiscreteInputCount int
}

// NewSlave allocates a slave session for the given unit address (1..247)
// and bank sizes. All banks and both write-protection masks start zeroed
// (unprotected).
func NewSlave(address uint8, sizes BankSizes, opts ...SlaveOption) (*Slave, error) {
	if address < 1 || address > 247 {
		return nil, ErrBadUnitId
	}

	s := &Slave{
		logger:           newLogger("modbus-slave", nil),
		address:          address,
		holdingRegisters: make([]uint16, sizes.RegisterCount),
		inputRegisters:   make([]uint16, sizes.InputRegisterCount),
		coils:            NewBitView(sizes.CoilCount),
		discreteInputs:   NewBitView(sizes.DiscreteInputCount),
		coilCount:        sizes.CoilCount,
		discreteCount:    sizes.DiscreteInputCount,
		registerMask:     NewBitView(sizes.RegisterCount),
		coilMask:         NewBitView(sizes.CoilCount),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Close releases the buffers owned by the session. The banks and masks
// (externally meaningful slave state) are left untouched.
func (s *Slave) Close() error {
	s.request.reset()
	s.response.reset()
	return nil
}

// Address returns the slave's unit address.
func (s *Slave) Address() uint8 {
	return s.address
}

// SetRequest loads the bytes received from the transport ahead of a call to
// ParseRequest.
func (s *Slave) SetRequest(b []byte) {
	s.request.set(b)
}

// Response returns the bytes of the most recently built response. It is
// empty (zero length) after a broadcast request, per the wire protocol.
func (s *Slave) Response() []byte {
	return s.response.Bytes
}

// HoldingRegister reads a holding register.
func (s *Slave) HoldingRegister(index int) (uint16, error) {
	if index < 0 || index >= len(s.holdingRegisters) {
		return 0, ErrUnexpectedParameters
	}
	return s.holdingRegisters[index], nil
}

// SetHoldingRegister writes a holding register directly, bypassing
// write-protection (used to seed or inspect slave state out of band).
func (s *Slave) SetHoldingRegister(index int, value uint16) error {
	if index < 0 || index >= len(s.holdingRegisters) {
		return ErrUnexpectedParameters
	}
	s.holdingRegisters[index] = value
	return nil
}

// InputRegister reads an input register.
func (s *Slave) InputRegister(index int) (uint16, error) {
	if index < 0 || index >= len(s.inputRegisters) {
		return 0, ErrUnexpectedParameters
	}
	return s.inputRegisters[index], nil
}

// SetInputRegister writes an input register directly (input registers have
// no wire-level write function code; this is for seeding simulated values).
func (s *Slave) SetInputRegister(index int, value uint16) error {
	if index < 0 || index >= len(s.inputRegisters) {
		return ErrUnexpectedParameters
	}
	s.inputRegisters[index] = value
	return nil
}

// Coil reads a coil.
func (s *Slave) Coil(index int) (bool, error) {
	if index < 0 || index >= s.coilCount {
		return false, ErrUnexpectedParameters
	}
	return s.coils.Get(index)
}

// SetCoil writes a coil directly, bypassing write-protection.
func (s *Slave) SetCoil(index int, value bool) error {
	if index < 0 || index >= s.coilCount {
		return ErrUnexpectedParameters
	}
	return s.coils.Set(index, value)
}

// DiscreteInput reads a discrete input.
func (s *Slave) DiscreteInput(index int) (bool, error) {
	if index < 0 || index >= s.discreteCount {
		return false, ErrUnexpectedParameters
	}
	return s.discreteInputs.Get(index)
}

// SetDiscreteInput writes a discrete input directly (discrete inputs have
// no wire-level write function code; this is for seeding simulated values).
func (s *Slave) SetDiscreteInput(index int, value bool) error {
	if index < 0 || index >= s.discreteCount {
		return ErrUnexpectedParameters
	}
	return s.discreteInputs.Set(index, value)
}

// ProtectRegister sets or clears the write-protection bit of a holding register.
func (s *Slave) ProtectRegister(index int, protected bool) error {
	return s.registerMask.Set(index, protected)
}

// ProtectCoil sets or clears the write-protection bit of a coil.
func (s *Slave) ProtectCoil(index int, protected bool) error {
	return s.coilMask.Set(index, protected)
}

// ParseRequest parses the request currently held by the session, mutating
// banks as required, and populates the response buffer with either a normal
// response, an exception frame, or nothing at all (broadcast).
//
// Returns nil on success (including a silently-ignored or broadcast
// request), ErrUnexpectedParameters if the request is too short to inspect,
// ErrBadCRC on a CRC mismatch, or an *ExceptionError if a response exception
// frame was built (the response is valid and should still be transmitted).
func (s *Slave) ParseRequest() error {
	s.response.reset()

	req := s.request.Bytes
	if len(req) < 4 {
		s.logger.Error("request is too short to parse")
		return ErrUnexpectedParameters
	}

	if !verifyFrameCRC(req) {
		s.logger.Error("request crc is invalid")
		return ErrBadCRC
	}

	address := req[0]
	broadcast := address == 0

	if address != s.address && !broadcast {
		// not addressed to us: silently ignore
		return nil
	}

	function := req[1]

	switch function {
	case fcReadCoils:
		return s.handleReadBits(broadcast, function, s.coils, s.coilCount)
	case fcReadDiscreteInputs:
		return s.handleReadBits(broadcast, function, s.discreteInputs, s.discreteCount)
	case fcReadHoldingRegisters:
		return s.handleReadRegisters(broadcast, function, s.holdingRegisters)
	case fcReadInputRegisters:
		return s.handleReadRegisters(broadcast, function, s.inputRegisters)
	case fcWriteSingleCoil:
		return s.handleWriteSingleCoil(broadcast)
	case fcWriteSingleRegister:
		return s.handleWriteSingleRegister(broadcast)
	case fcWriteMultipleCoils:
		return s.handleWriteMultipleCoils(broadcast)
	case fcWriteMultipleRegisters:
		return s.handleWriteMultipleRegisters(broadcast)
	case fcMaskWriteRegister:
		return s.handleMaskWriteRegister(broadcast)
	default:
		if broadcast {
			return nil
		}
		return s.buildException(address, function, exIllegalFunction)
	}
}

// buildException assembles a 5-byte exception frame into the response
// buffer and returns the corresponding *ExceptionError.
func (s *Slave) buildException(address uint8, function uint8, code uint8) error {
	exFunction := function | exceptionBit
	buf := []byte{address, exFunction, code}

	var c crc
	c.init()
	c.add(buf)
	buf = append(buf, c.value()...)

	s.response.set(buf)

	return &ExceptionError{Address: address, Function: exFunction, Code: code}
}

// buildResponse assembles a normal response frame into the response buffer,
// unless the request was a broadcast, in which case no response is sent.
func (s *Slave) buildResponse(broadcast bool, address uint8, function uint8, payload []byte) error {
	if broadcast {
		return nil
	}

	buf := append([]byte{address, function}, payload...)

	var c crc
	c.init()
	c.add(buf)
	buf = append(buf, c.value()...)

	s.response.set(buf)

	return nil
}

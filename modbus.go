// Package modbus implements a Modbus RTU protocol codec: a master side that
// builds request frames and parses the matching responses, and a slave side
// that parses incoming requests against a set of data banks and builds the
// response (or exception) frame.
//
// The package performs no I/O. Callers are responsible for shipping the
// bytes built by a Master or Slave session across a transport (serial line,
// socket, whatever) and for feeding back whatever bytes come back.
package modbus

import (
	"errors"
	"fmt"
)

// function codes, as they appear on the wire (the second byte of a frame).
const (
	fcReadCoils              uint8 = 0x01
	fcReadDiscreteInputs     uint8 = 0x02
	fcReadHoldingRegisters   uint8 = 0x03
	fcReadInputRegisters     uint8 = 0x04
	fcWriteSingleCoil        uint8 = 0x05
	fcWriteSingleRegister    uint8 = 0x06
	fcWriteMultipleCoils     uint8 = 0x0f
	fcWriteMultipleRegisters uint8 = 0x10
	fcMaskWriteRegister      uint8 = 0x16

	exceptionBit uint8 = 0x80
)

// exception codes, as carried in the single-byte payload of an exception frame.
const (
	exIllegalFunction     uint8 = 0x01
	exIllegalDataAddress  uint8 = 0x02
	exIllegalDataValue    uint8 = 0x03
	exServerDeviceFailure uint8 = 0x04
)

var (
	// ErrBadCRC is returned when a frame's trailing CRC does not match its
	// computed value.
	ErrBadCRC = errors.New("modbus: bad crc")
	// ErrProtocolError is returned when a frame is internally inconsistent
	// (wrong length, mismatched echoed fields, unsupported function code).
	ErrProtocolError = errors.New("modbus: protocol error")
	// ErrUnexpectedParameters is returned when a caller-supplied argument is
	// out of range or otherwise invalid.
	ErrUnexpectedParameters = errors.New("modbus: unexpected parameters")
	// ErrAllocation is returned when a frame would not fit the maximum RTU
	// ADU size, modeling the allocation failure the embedded source reports
	// under the same condition.
	ErrAllocation = errors.New("modbus: allocation failed")
	// ErrBadUnitId is returned when a slave address is out of the 1..247 range.
	ErrBadUnitId = errors.New("modbus: bad unit id")

	errIllegalFunction     = errors.New("modbus: illegal function")
	errIllegalDataAddress  = errors.New("modbus: illegal data address")
	errIllegalDataValue    = errors.New("modbus: illegal data value")
	errServerDeviceFailure = errors.New("modbus: server device failure")
)

// maxRTUFrameLength is the largest ADU the RTU wire format allows
// (address + function + 252 data bytes + 2-byte CRC).
const maxRTUFrameLength = 256

// ExceptionError is returned by Master.ParseResponse when the slave replied
// with a protocol exception frame, and is built (internally) by the slave
// side when validation fails on a non-broadcast request.
type ExceptionError struct {
	Address  uint8
	Function uint8 // the exception function code, i.e. the original code | 0x80
	Code     uint8
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus: exception from unit %d, function 0x%02x: %s",
		e.Address, e.Function, mapExceptionCodeToError(e.Code))
}

// Unwrap exposes the underlying exception semantics via errors.Is/errors.As,
// e.g. errors.Is(err, errIllegalDataAddress) inside this package.
func (e *ExceptionError) Unwrap() error {
	return mapExceptionCodeToError(e.Code)
}

func mapExceptionCodeToError(code uint8) error {
	switch code {
	case exIllegalFunction:
		return errIllegalFunction
	case exIllegalDataAddress:
		return errIllegalDataAddress
	case exIllegalDataValue:
		return errIllegalDataValue
	case exServerDeviceFailure:
		return errServerDeviceFailure
	default:
		return fmt.Errorf("modbus: unsupported exception code (%v)", code)
	}
}

package modbus

import "log"

// DataType identifies the kind of payload carried by a Master's Data record.
type DataType int

const (
	// HoldingRegister marks a Data record populated by a read-holding-registers
	// response, or echoing a holding-register write.
	HoldingRegister DataType = iota
	// InputRegister marks a Data record populated by a read-input-registers response.
	InputRegister
	// Coil marks a Data record populated by a read-coils response, or echoing
	// a coil write.
	Coil
	// DiscreteInput marks a Data record populated by a read-discrete-inputs response.
	DiscreteInput
)

// frame is the minimal {bytes, length} pair used for request and response
// buffers; Length is always len(Bytes), kept as a field alongside Bytes to
// mirror how callers in other parts of this package refer to frame size.
type frame struct {
	Bytes  []byte
	Length int
}

func (f *frame) set(b []byte) {
	f.Bytes = b
	f.Length = len(b)
}

func (f *frame) reset() {
	f.Bytes = nil
	f.Length = 0
}

// Data is the master's parsed result record, populated by a successful
// ParseResponse for any of the in-scope function codes.
type Data struct {
	SlaveAddress  uint8
	StartIndex    uint16
	Count         uint16
	ByteLength    int
	Type          DataType
	Function      uint8
	CoilBytes     []byte   // valid when Type is Coil or DiscreteInput
	RegisterWords []uint16 // valid when Type is HoldingRegister or InputRegister
}

func (d *Data) reset() {
	*d = Data{}
}

// Exception is the master's parsed exception record, populated when the
// slave replies with a protocol exception frame.
type Exception struct {
	SlaveAddress uint8
	Function     uint8
	Code         uint8
}

func (e *Exception) reset() {
	*e = Exception{}
}

// Master builds Modbus RTU requests and parses the matching responses.
// A Master is not safe for concurrent use: callers must serialize access to
// a single session, though distinct sessions are fully independent.
type Master struct {
	logger *logger

	request                 frame
	response                frame
	predictedResponseLength int

	data      Data
	exception Exception
}

// MasterOption configures a Master at construction time.
type MasterOption func(*Master)

// WithMasterLogger sets a custom log sink (defaults to os.Stderr).
func WithMasterLogger(l *log.Logger) MasterOption {
	return func(m *Master) {
		m.logger = newLogger("modbus-master", l)
	}
}

// NewMaster allocates and initializes a master session.
func NewMaster(opts ...MasterOption) *Master {
	m := &Master{
		logger: newLogger("modbus-master", nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Close releases the buffers owned by the session. The session should not
// be used afterwards.
func (m *Master) Close() error {
	m.request.reset()
	m.response.reset()
	m.data.reset()
	m.exception.reset()
	return nil
}

// Request returns the bytes of the most recently built request.
func (m *Master) Request() []byte {
	return m.request.Bytes
}

// PredictedResponseLength returns the byte count the slave is expected to
// return for the request currently held by the session (0 for broadcasts).
func (m *Master) PredictedResponseLength() int {
	return m.predictedResponseLength
}

// SetResponse loads the bytes received from the transport ahead of a call
// to ParseResponse.
func (m *Master) SetResponse(b []byte) {
	m.response.set(b)
}

// Data returns the result record populated by the last successful ParseResponse.
func (m *Master) Data() Data {
	return m.data
}

// Exception returns the exception record populated when ParseResponse
// returned an *ExceptionError.
func (m *Master) Exception() Exception {
	return m.exception
}

// newRequestBuffer validates a computed frame length against the RTU ADU
// ceiling before the caller populates it, standing in for the allocation
// failure path embedded targets must report.
func newRequestBuffer(length int) ([]byte, error) {
	if length <= 0 || length > maxRTUFrameLength {
		return nil, ErrAllocation
	}
	return make([]byte, length), nil
}

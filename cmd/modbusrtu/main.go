// Command modbusrtu is a small diagnostic tool that issues a single Modbus
// RTU request over a serial line and prints the parsed response.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.bug.st/serial"

	"github.com/cedarmb/modbusrtu"
	"github.com/cedarmb/modbusrtu/serialio"
)

func main() {
	device := flag.String("device", "/dev/ttyUSB0", "serial device")
	baud := flag.Int("baud", 19200, "baud rate")
	unit := flag.Int("unit", 1, "slave unit address")
	function := flag.Int("function", 3, "function code: 1,2,3,4")
	index := flag.Uint("index", 0, "starting address")
	count := flag.Uint("count", 1, "quantity to read")
	flag.Parse()

	if err := run(*device, *baud, uint8(*unit), uint8(*function), uint16(*index), uint16(*count)); err != nil {
		log.Fatal(err)
	}
}

func run(device string, baud int, unit uint8, function uint8, index uint16, count uint16) error {
	transport, err := serialio.Open(serialio.Config{
		Device:   device,
		Speed:    baud,
		Parity:   serial.NoParity,
		StopBits: serial.TwoStopBits,
		Timeout:  500 * time.Millisecond,
	})
	if err != nil {
		return err
	}
	defer transport.Close()

	master := modbus.NewMaster()
	defer master.Close()

	switch function {
	case 1:
		err = master.BuildRequest01(unit, index, count)
	case 2:
		err = master.BuildRequest02(unit, index, count)
	case 3:
		err = master.BuildRequest03(unit, index, count)
	case 4:
		err = master.BuildRequest04(unit, index, count)
	default:
		return fmt.Errorf("unsupported function code %d for this tool", function)
	}
	if err != nil {
		return err
	}

	response, err := transport.Execute(master.Request(), master.PredictedResponseLength())
	if err != nil {
		return err
	}
	master.SetResponse(response)

	if err := master.ParseResponse(); err != nil {
		var exc *modbus.ExceptionError
		if errors.As(err, &exc) {
			fmt.Fprintf(os.Stderr, "exception: unit=%d function=0x%02x code=0x%02x\n",
				exc.Address, exc.Function, exc.Code)
			return nil
		}
		return err
	}

	data := master.Data()
	switch data.Type {
	case modbus.HoldingRegister, modbus.InputRegister:
		fmt.Printf("registers: %v\n", data.RegisterWords)
	case modbus.Coil, modbus.DiscreteInput:
		fmt.Printf("bits: %08b\n", data.CoilBytes)
	}

	return nil
}

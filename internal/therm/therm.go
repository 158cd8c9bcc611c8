// Package therm reads the ambient temperature that drives the panel's
// compensation band selection.
package therm

import (
	"context"
	"errors"
	"runtime"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Reader abstracts how we obtain the ambient temperature. This allows a
// fixed value for development and an LM75-backed implementation on the
// evaluation board.
type Reader interface {
	// Read returns the temperature in degrees Celsius.
	Read(ctx context.Context) (float64, error)
}

// fixedReader always reports the configured temperature.
type fixedReader struct {
	celsius float64
}

// lm75Reader talks to the LM75 temperature sensor on the evaluation
// board over I2C. The sensor exposes the temperature in register 0x00 as
// a big-endian signed 16-bit value in 1/256 degree steps.
type lm75Reader struct {
	busName string
	addr    uint16
}

// NewFixedReader constructs a Reader that always returns celsius. This is
// suitable for development machines without the sensor, or panels
// deployed in a temperature-controlled environment.
func NewFixedReader(celsius float64) Reader {
	return &fixedReader{celsius: celsius}
}

// NewLM75Reader constructs an I2C-backed Reader.
//
//   - busName: I2C bus identifier for periph.io ("" for the default bus)
//   - addr:    7-bit I2C address of the sensor (0x49 on the stock board)
//
// The constructor only stores the configuration; the I2C connection and
// host.Init happen at Read time.
func NewLM75Reader(busName string, addr uint16) Reader {
	return &lm75Reader{busName: busName, addr: addr}
}

func (f *fixedReader) Read(_ context.Context) (float64, error) {
	return f.celsius, nil
}

// Read implements Reader for the LM75-backed reader.
func (r *lm75Reader) Read(_ context.Context) (float64, error) {
	if runtime.GOOS != "linux" {
		return 0, errors.New("therm: i2c reader unavailable on this platform")
	}
	if _, err := host.Init(); err != nil {
		return 0, err
	}

	bus, err := i2creg.Open(r.busName)
	if err != nil {
		return 0, err
	}
	defer bus.Close()

	dev := &i2c.Dev{Bus: bus, Addr: r.addr}

	buf := []byte{0, 0}
	if err := dev.Tx([]byte{0x00}, buf); err != nil {
		return 0, err
	}
	return decode(buf[0], buf[1]), nil
}

// decode converts the raw two-byte register value to degrees Celsius.
// Negative temperatures are two's complement over the full 16 bits.
func decode(msb, lsb byte) float64 {
	return float64(int16(uint16(msb)<<8|uint16(lsb))) / 256.0
}

package epd

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Pin identifies one of the panel control lines. The driver addresses pins
// through these logical names only; a Transport maps them to host GPIOs.
type Pin uint8

const (
	PinPanelOn Pin = iota
	PinBorder
	PinDischarge
	PinReset
	PinBusy
	PinChipSelect
)

// Transport is the hardware capability set the driver depends on: framed
// serial transfers, the six control pins and a monotonic millisecond clock.
// The driver performs no retries at this layer; every transfer is assumed
// delivered once the COG busy line clears.
type Transport interface {
	// BusEnable and BusDisable bracket a burst of bus activity. Both
	// settle the COG input latch with two dummy zero transfers.
	BusEnable()
	BusDisable()

	// Transfer clocks one byte out and returns the byte clocked in.
	Transfer(b byte) byte

	// WriteFramed drops cs, writes all bytes, raises cs.
	WriteFramed(cs Pin, data []byte)

	// ReadFramed is WriteFramed returning the last byte clocked in.
	ReadFramed(cs Pin, data []byte) byte

	DigitalWrite(p Pin, high bool)
	DigitalRead(p Pin) bool

	// NowMillis is a monotonic millisecond counter. It is allowed to wrap.
	NowMillis() uint32
	SleepMillis(ms int)
	SleepMicros(us int)
}

// PinSet wires the panel control lines to host GPIOs.
type PinSet struct {
	PanelOn    gpio.PinOut
	Border     gpio.PinOut
	Discharge  gpio.PinOut
	Reset      gpio.PinOut
	Busy       gpio.PinIO
	ChipSelect gpio.PinOut
}

func (p PinSet) validate() error {
	if p.PanelOn == nil || p.Border == nil || p.Discharge == nil ||
		p.Reset == nil || p.Busy == nil || p.ChipSelect == nil {
		return errors.New("epd: all six control pins must be assigned")
	}
	return nil
}

// SPI is the periph.io backed Transport. Chip select is driven as a plain
// GPIO because the COG protocol holds it low across whole scan line
// payloads, which spidev per-message CS cannot express.
type SPI struct {
	conn  spi.Conn
	pins  PinSet
	epoch time.Time
	w, r  [1]byte
}

// NewSPI connects the port in mode 0, 8 bits, MSB first. speed 0 selects
// 8 MHz, comfortably inside the COG's rated serial clock.
func NewSPI(port spi.Port, pins PinSet, speed physic.Frequency) (*SPI, error) {
	if err := pins.validate(); err != nil {
		return nil, err
	}
	if speed == 0 {
		speed = 8 * physic.MegaHertz
	}
	conn, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("epd: spi connect: %w", err)
	}
	if err := pins.Busy.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("epd: busy pin: %w", err)
	}
	return &SPI{conn: conn, pins: pins, epoch: time.Now()}, nil
}

func (s *SPI) BusEnable() {
	s.Transfer(0x00)
	s.Transfer(0x00)
	s.SleepMicros(10)
}

func (s *SPI) BusDisable() {
	s.Transfer(0x00)
	s.Transfer(0x00)
	s.SleepMicros(10)
}

func (s *SPI) Transfer(b byte) byte {
	s.w[0] = b
	_ = s.conn.Tx(s.w[:], s.r[:])
	return s.r[0]
}

func (s *SPI) WriteFramed(cs Pin, data []byte) {
	s.SleepMicros(10)
	s.DigitalWrite(cs, false)
	for _, b := range data {
		s.Transfer(b)
	}
	s.DigitalWrite(cs, true)
}

func (s *SPI) ReadFramed(cs Pin, data []byte) byte {
	s.SleepMicros(10)
	s.DigitalWrite(cs, false)
	var last byte
	for _, b := range data {
		last = s.Transfer(b)
	}
	s.DigitalWrite(cs, true)
	return last
}

func (s *SPI) DigitalWrite(p Pin, high bool) {
	pin := s.out(p)
	if pin == nil {
		return
	}
	level := gpio.Low
	if high {
		level = gpio.High
	}
	_ = pin.Out(level)
}

func (s *SPI) DigitalRead(p Pin) bool {
	if p == PinBusy {
		return s.pins.Busy.Read() == gpio.High
	}
	return false
}

func (s *SPI) NowMillis() uint32 {
	return uint32(time.Since(s.epoch) / time.Millisecond)
}

func (s *SPI) SleepMillis(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func (s *SPI) SleepMicros(us int) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

func (s *SPI) out(p Pin) gpio.PinOut {
	switch p {
	case PinPanelOn:
		return s.pins.PanelOn
	case PinBorder:
		return s.pins.Border
	case PinDischarge:
		return s.pins.Discharge
	case PinReset:
		return s.pins.Reset
	case PinChipSelect:
		return s.pins.ChipSelect
	}
	return nil
}

// Package epd drives Pervasive Displays electrophoretic panels through
// their chip-on-glass (COG) G1 timing controller over SPI. The driver owns
// the full controller lifecycle: power-up with health verification, the
// temperature-compensated three stage refresh (inverse erase, timed
// conditioning, image write), per-line pixel encoding, and the discharge
// sequence on power-down.
//
// The driver is synchronous and single threaded by design. It assumes
// exclusive ownership of the bus and control pins for the duration of any
// exported call; callers running from multiple goroutines must serialize
// access themselves.
package epd

// Stage selects the pixel polarity of a refresh pass.
type Stage uint8

const (
	StageInverse Stage = iota // erase pass: black -> white, white -> black
	StageNormal               // image pass: polarity preserved
)

// Status reports the outcome of the last power transition. It is the only
// error channel the driver has: Begin and End never return errors, callers
// poll Status after each of them.
type Status uint8

const (
	StatusOK Status = iota
	StatusUnsupportedController // COG ID readback mismatch
	StatusPanelBroken           // panel integrity self test failed
	StatusPowerFailure          // charge pumps never reached ready state
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnsupportedController:
		return "unsupported controller"
	case StatusPanelBroken:
		return "panel broken"
	case StatusPowerFailure:
		return "power failure"
	}
	return "unknown"
}

// NoLine is the scan index that strobes no physical row. Writing it
// flushes the scan shift register without driving the panel.
const NoLine = 0x7fff

// DefaultTemperature is assumed until SetFactor is called with a measured
// value.
const DefaultTemperature = 25

// Driver is the COG driver for one panel. Construct with New, bring the
// panel up with Begin, push frames, then always tear down with End.
type Driver struct {
	port       Transport
	profile    Profile
	comp       *compensation
	tempOffset int
	status     Status

	// BusyPollLimit caps the number of polls in every busy-signal wait.
	// Zero waits forever, which is what the COG power-up flow specifies;
	// setting a limit trades that fidelity for a guarantee against
	// hanging on dead hardware. An exhausted wait during Begin reports
	// StatusPowerFailure.
	BusyPollLimit int
}

// New builds a driver for the given panel model on the given transport.
// The temperature factor starts at DefaultTemperature; call SetFactor
// before refreshing if the ambient temperature is known.
func New(port Transport, size Size) *Driver {
	d := &Driver{port: port, profile: ProfileFor(size)}
	d.SetFactor(DefaultTemperature)
	return d
}

// Status returns the outcome of the most recent power transition.
func (d *Driver) Status() Status { return d.status }

// Profile returns the geometry of the panel this driver was built for.
func (d *Driver) Profile() Profile { return d.profile }

// SetFactor selects the compensation band for the given temperature in
// degrees Celsius. Band boundaries: below 10, 10 through 40, above 40.
// May be called between frame operations to track ambient changes.
func (d *Driver) SetFactor(temperature int) {
	switch {
	case temperature < 10:
		d.tempOffset = 0
	case temperature > 40:
		d.tempOffset = 2
	default:
		d.tempOffset = 1
	}
	d.comp = compensationFor(d.profile.Size, d.tempOffset)
}

// TemperatureOffset returns the active compensation band index (0..2).
func (d *Driver) TemperatureOffset() int { return d.tempOffset }

// Begin powers the controller up and verifies it is usable: reset pulse
// sequencing, COG ID check, panel integrity check, then charge pump
// bring-up with up to four attempts. Any failure sets the terminal status
// for this session and forces PowerOff; callers must check Status before
// writing frames.
func (d *Driver) Begin() {
	t := d.port
	d.status = StatusOK

	t.DigitalWrite(PinReset, false)
	t.DigitalWrite(PinPanelOn, false)
	t.DigitalWrite(PinDischarge, false)
	t.DigitalWrite(PinBorder, false)
	t.DigitalWrite(PinChipSelect, false)

	t.BusEnable()

	t.SleepMillis(5)
	t.DigitalWrite(PinPanelOn, true)
	t.SleepMillis(10)

	t.DigitalWrite(PinReset, true)
	t.DigitalWrite(PinBorder, true)
	t.DigitalWrite(PinChipSelect, true)
	t.SleepMillis(5)

	t.DigitalWrite(PinReset, false)
	t.SleepMillis(5)

	t.DigitalWrite(PinReset, true)
	t.SleepMillis(5)

	if !d.waitReady() {
		d.status = StatusPowerFailure
		d.PowerOff()
		return
	}

	// The COG needs one read cycle before the ID register responds, so
	// the first read is discarded.
	t.ReadFramed(PinChipSelect, cmdReadID)
	cogID := t.ReadFramed(PinChipSelect, cmdReadID)
	if cogID&cogIDMask != cogIDExpected {
		d.status = StatusUnsupportedController
		d.PowerOff()
		return
	}

	d.writeRegister(regOutputEnable, outputDisable)

	if d.readRegister(regStatus)&statusPanelOK == 0 {
		d.status = StatusPanelBroken
		d.PowerOff()
		return
	}

	d.writeRegister(regPowerSaving, powerSavingOn)

	t.WriteFramed(PinChipSelect, []byte{opRegisterSelect, regChannelSelect})
	t.WriteFramed(PinChipSelect, d.profile.ChannelSelect[:])

	d.writeRegister(regOscillator, oscillatorOn)
	d.writeRegister(regPowerSetting, powerSettingRun)
	d.writeRegister(regVcomLevel, vcomLevelRun)
	d.writeRegister(regPower, powerRun)

	d.writeRegister(regLatch, latchOn)
	d.writeRegister(regLatch, latchOff)

	t.SleepMillis(5)

	dcOK := false
	for i := 0; i < 4; i++ {
		d.writeRegister(regChargePump, pumpPositiveOn)
		t.SleepMillis(240)

		d.writeRegister(regChargePump, pumpNegativeOn)
		t.SleepMillis(40)

		d.writeRegister(regChargePump, pumpVcomOn)
		t.SleepMillis(40)

		if d.readRegister(regStatus)&statusDCReady == statusDCReady {
			dcOK = true
			break
		}
	}
	if !dcOK {
		d.status = StatusPowerFailure
		d.PowerOff()
		return
	}

	d.writeRegister(regOutputEnable, outputDisable)

	t.BusDisable()
}

// End flushes the panel to an electrically neutral state and powers the
// controller down. The 2.7" model substitutes a border pulse for the flush
// lines. A failed charge pump readback sets StatusPowerFailure; either way
// the routine finishes in PowerOff.
func (d *Driver) End() {
	t := d.port

	if d.profile.Size == Size270 {
		t.SleepMillis(25)
		t.DigitalWrite(PinBorder, false)
		t.SleepMillis(250)
		t.DigitalWrite(PinBorder, true)
	} else {
		d.Line(NoLine, nil, 0x00, StageNormal, 0xff)
		t.SleepMillis(40)
		d.Line(NoLine, nil, 0x00, StageNormal, 0xaa)
		t.SleepMillis(200)
		d.Line(NoLine, nil, 0x00, StageNormal, 0x00)
		t.SleepMillis(25)
	}

	t.BusEnable()

	if d.readRegister(regStatus)&statusDCReady != statusDCReady {
		d.status = StatusPowerFailure
		d.PowerOff()
		return
	}

	d.writeRegister(regLatch, latchOn)
	d.writeRegister(regOutputEnable, outputPowerOff)

	d.writeRegister(regChargePump, pumpPositiveOff)
	d.writeRegister(regChargePump, pumpVcomOff)
	d.writeRegister(regChargePump, pumpAllOff)

	d.writeRegister(regOscillator, oscillatorOff)

	d.writeRegister(regPower, powerDischargeOn)
	t.SleepMillis(120)
	d.writeRegister(regPower, powerDischargeOff)

	d.PowerOff()
}

// PowerOff is the unconditional hardware-safe shutdown every failure path
// funnels through. MOSI and clock must be low before chip select drops or
// the COG sees spurious clock edges, hence the bus goes idle first. The
// discharge pin is then pulsed to bleed residual panel charge.
func (d *Driver) PowerOff() {
	t := d.port

	t.DigitalWrite(PinReset, false)
	t.DigitalWrite(PinPanelOn, false)
	t.DigitalWrite(PinBorder, false)

	t.BusDisable()
	t.DigitalWrite(PinChipSelect, false)

	for i := 0; i < 10; i++ {
		t.SleepMillis(10)
		t.DigitalWrite(PinDischarge, true)
		t.SleepMillis(10)
		t.DigitalWrite(PinDischarge, false)
	}
}

// writeRegister performs a select-then-write register access.
func (d *Driver) writeRegister(reg, value byte) {
	d.port.WriteFramed(PinChipSelect, []byte{opRegisterSelect, reg})
	d.port.WriteFramed(PinChipSelect, []byte{opRegisterWrite, value})
}

// readRegister performs a select-then-read register access.
func (d *Driver) readRegister(reg byte) byte {
	d.port.WriteFramed(PinChipSelect, []byte{opRegisterSelect, reg})
	return d.port.ReadFramed(PinChipSelect, cmdReadData)
}

// waitReady polls the busy line until the COG reports ready, spacing polls
// by 10us. Honors BusyPollLimit.
func (d *Driver) waitReady() bool {
	for i := 0; d.BusyPollLimit == 0 || i < d.BusyPollLimit; i++ {
		if !d.port.DigitalRead(PinBusy) {
			return true
		}
		d.port.SleepMicros(10)
	}
	return false
}

// transferWait writes one byte and blocks until the COG busy line clears.
// A poll limit overrun falls through; mid-line there is no way to report
// it and the subsequent power transition will surface the fault.
func (d *Driver) transferWait(b byte) {
	d.port.Transfer(b)
	for i := 0; d.BusyPollLimit == 0 || i < d.BusyPollLimit; i++ {
		if !d.port.DigitalRead(PinBusy) {
			return
		}
	}
}

package epd

// COG serial command set. Every register access is two framed transfers: a
// header byte saying how the next frame is interpreted, then the payload.
const (
	opRegisterSelect byte = 0x70 // next frame addresses a register
	opRegisterRead   byte = 0x71 // register read request
	opRegisterWrite  byte = 0x72 // register write data follows
	opRegisterData   byte = 0x73 // prefix clocking out a register read response
)

// COG register addresses.
const (
	regChannelSelect byte = 0x01
	regOutputEnable  byte = 0x02
	regLatch         byte = 0x03
	regPower         byte = 0x04
	regChargePump    byte = 0x05
	regOscillator    byte = 0x07
	regPowerSetting  byte = 0x08
	regVcomLevel     byte = 0x09
	regData          byte = 0x0a
	regPowerSaving   byte = 0x0b
	regStatus        byte = 0x0f
)

// Charge pump control values (register 0x05). Bring-up enables the pumps
// one rail at a time; teardown walks them back down in the same order.
const (
	pumpPositiveOn  byte = 0x01 // VGH/VDL
	pumpNegativeOn  byte = 0x03 // VGL/VDL
	pumpVcomOn      byte = 0x0f
	pumpPositiveOff byte = 0x0e
	pumpVcomOff     byte = 0x02
	pumpAllOff      byte = 0x00
)

// Output enable control values (register 0x02).
const (
	outputDisable  byte = 0x40
	outputPowerOff byte = 0x05
	outputToPanel  byte = 0x07
)

// Miscellaneous register values.
const (
	oscillatorOn      byte = 0xd1 // high power mode
	oscillatorOff     byte = 0x0d
	powerSettingRun   byte = 0x02
	vcomLevelRun      byte = 0xc2
	powerRun          byte = 0x03
	powerDischargeOn  byte = 0x83
	powerDischargeOff byte = 0x00
	powerSavingOn     byte = 0x02
	latchOn           byte = 0x01
	latchOff          byte = 0x00
)

// Status register bits (register 0x0f).
const (
	statusPanelOK byte = 0x80 // clear when the panel glass failed its self test
	statusDCReady byte = 0x40 // charge pumps reached operating voltage
)

// The COG ID register carries the controller generation in its low nibble.
const (
	cogIDMask     byte = 0x0f
	cogIDExpected byte = 0x02
)

// Read frames. The trailing 0x00 clocks the response byte out.
var (
	cmdReadID   = []byte{opRegisterRead, 0x00}
	cmdReadData = []byte{opRegisterData, 0x00}
)

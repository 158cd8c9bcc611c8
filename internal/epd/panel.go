package epd

import "fmt"

// Size selects one of the supported panel models.
type Size uint8

const (
	Size144 Size = iota // 1.44" 128x96
	Size200             // 2.0"  200x96
	Size270             // 2.7"  264x176
)

func (s Size) String() string {
	switch s {
	case Size144:
		return "1.44"
	case Size200:
		return "2.0"
	case Size270:
		return "2.7"
	}
	return fmt.Sprintf("Size(%d)", uint8(s))
}

// ParseSize maps a configuration string to a panel model.
func ParseSize(s string) (Size, error) {
	switch s {
	case "1.44":
		return Size144, nil
	case "2.0", "2":
		return Size200, nil
	case "2.7":
		return Size270, nil
	}
	return Size144, fmt.Errorf("epd: unknown panel size %q", s)
}

// Profile holds the fixed geometry of a panel model together with the COG
// channel select payload matching its column count. The payload is written
// to the controller verbatim during power up.
type Profile struct {
	Size            Size
	LinesPerDisplay int
	DotsPerLine     int
	BytesPerLine    int // DotsPerLine / 8
	BytesPerScan    int // LinesPerDisplay / 4
	ChannelSelect   [9]byte
}

var profiles = [...]Profile{
	Size144: {
		Size:            Size144,
		LinesPerDisplay: 96,
		DotsPerLine:     128,
		BytesPerLine:    128 / 8,
		BytesPerScan:    96 / 4,
		ChannelSelect:   [9]byte{0x72, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0f, 0xff, 0x00},
	},
	Size200: {
		Size:            Size200,
		LinesPerDisplay: 96,
		DotsPerLine:     200,
		BytesPerLine:    200 / 8,
		BytesPerScan:    96 / 4,
		ChannelSelect:   [9]byte{0x72, 0x00, 0x00, 0x00, 0x00, 0x01, 0xff, 0xe0, 0x00},
	},
	Size270: {
		Size:            Size270,
		LinesPerDisplay: 176,
		DotsPerLine:     264,
		BytesPerLine:    264 / 8,
		BytesPerScan:    176 / 4,
		ChannelSelect:   [9]byte{0x72, 0x00, 0x00, 0x00, 0x7f, 0xff, 0xfe, 0x00, 0x00},
	},
}

// ProfileFor returns the geometry for a panel model. Unknown values fall
// back to the smallest panel; existing boards depend on that leniency.
func ProfileFor(size Size) Profile {
	if int(size) < len(profiles) {
		return profiles[size]
	}
	return profiles[Size144]
}

// BufferSize returns the length in bytes of one full frame for this panel:
// LinesPerDisplay rows of BytesPerLine bytes, MSB first within a byte.
func (p Profile) BufferSize() int {
	return p.LinesPerDisplay * p.BytesPerLine
}

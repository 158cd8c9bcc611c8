package epd

// simPort is a scripted in-memory Transport. It records every framed
// transaction and every millisecond sleep, tracks pin levels, and serves
// scripted responses for the COG ID and status read frames. The clock
// advances by tick on every NowMillis call and by the slept amount on
// every SleepMillis call.
type simPort struct {
	clock uint32
	tick  uint32

	pins [6]bool
	busy bool

	frames [][]byte
	cur    []byte
	open   bool

	sleeps []int

	cogID    byte
	statuses []byte // queue for status reads; empty means panel ok + DC ready
}

func newSim() *simPort {
	return &simPort{tick: 1, cogID: cogIDExpected}
}

func (s *simPort) BusEnable()  {}
func (s *simPort) BusDisable() {}

func (s *simPort) Transfer(b byte) byte {
	if s.open {
		s.cur = append(s.cur, b)
	}
	return 0
}

func (s *simPort) WriteFramed(cs Pin, data []byte) {
	s.frames = append(s.frames, append([]byte(nil), data...))
}

func (s *simPort) ReadFramed(cs Pin, data []byte) byte {
	s.frames = append(s.frames, append([]byte(nil), data...))
	switch data[0] {
	case opRegisterRead:
		return s.cogID
	case opRegisterData:
		if len(s.statuses) == 0 {
			return statusPanelOK | statusDCReady
		}
		v := s.statuses[0]
		if len(s.statuses) > 1 {
			s.statuses = s.statuses[1:]
		}
		return v
	}
	return 0
}

func (s *simPort) DigitalWrite(p Pin, high bool) {
	if p == PinChipSelect {
		if !high && !s.open {
			s.open = true
			s.cur = nil
		} else if high && s.open {
			s.open = false
			s.frames = append(s.frames, s.cur)
			s.cur = nil
		}
	}
	s.pins[p] = high
}

func (s *simPort) DigitalRead(p Pin) bool {
	if p == PinBusy {
		return s.busy
	}
	return s.pins[p]
}

func (s *simPort) NowMillis() uint32 {
	s.clock += s.tick
	return s.clock
}

func (s *simPort) SleepMillis(ms int) {
	s.sleeps = append(s.sleeps, ms)
	s.clock += uint32(ms)
}

func (s *simPort) SleepMicros(us int) {}

// lineFrames filters the recorded frames down to scan line payloads:
// frames opened with the register write header carrying border byte,
// both pixel halves and the scan bytes.
func (s *simPort) lineFrames(p Profile) [][]byte {
	want := 2 + 2*p.BytesPerLine + p.BytesPerScan
	var out [][]byte
	for _, f := range s.frames {
		if len(f) == want && f[0] == opRegisterWrite {
			out = append(out, f)
		}
	}
	return out
}

// sections of a line payload frame
func splitLine(p Profile, f []byte) (border byte, odd, scan, even []byte) {
	border = f[1]
	odd = f[2 : 2+p.BytesPerLine]
	scan = f[2+p.BytesPerLine : 2+p.BytesPerLine+p.BytesPerScan]
	even = f[2+p.BytesPerLine+p.BytesPerScan:]
	return
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func allEqual(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}

// countFrames counts recorded frames equal to the given bytes.
func (s *simPort) countFrames(want ...byte) int {
	n := 0
	for _, f := range s.frames {
		if len(f) != len(want) {
			continue
		}
		same := true
		for i := range f {
			if f[i] != want[i] {
				same = false
				break
			}
		}
		if same {
			n++
		}
	}
	return n
}

package epd

import (
	"fmt"
	"math"
)

// Line encodes and transmits one scan line transaction. data is a borrowed
// slice of BytesPerLine bytes, MSB first, set bit = black; it is read once
// and never retained. A nil data writes fixed at every pixel position
// instead, which the blanking and conditioning passes use. border sets the
// electrical state of the panel border region for this line.
//
// The COG wants the line as: border byte, odd pixel bytes walking the line
// backwards, the scan activation bytes, then even pixel bytes walking
// forwards with the bit pairs swapped into the panel's even column order.
// Exactly one scan byte is non-zero and strobes one physical row; index
// NoLine strobes none.
func (d *Driver) Line(line int, data []byte, fixed byte, stage Stage, border byte) {
	t := d.port
	p := &d.profile

	t.BusEnable()

	t.WriteFramed(PinChipSelect, []byte{opRegisterSelect, regData})
	t.SleepMicros(10)

	t.DigitalWrite(PinChipSelect, false)
	d.transferWait(opRegisterWrite)
	d.transferWait(border)

	// odd pixels
	for b := p.BytesPerLine; b > 0; b-- {
		if data != nil {
			pixels := data[b-1] & 0x55
			switch stage {
			case StageInverse: // B -> W, W -> B
				pixels = 0xaa | (pixels ^ 0x55)
			case StageNormal: // B -> B, W -> W
				pixels = 0xaa | pixels
			}
			d.transferWait(pixels)
		} else {
			d.transferWait(fixed)
		}
	}

	// scan line select
	scanPos := (p.LinesPerDisplay - line - 1) / 4
	scanShift := 2 * (line & 0x03)
	for b := 0; b < p.BytesPerScan; b++ {
		if b == scanPos {
			d.transferWait(0x03 << scanShift)
		} else {
			d.transferWait(0x00)
		}
	}

	// even pixels
	for b := 0; b < p.BytesPerLine; b++ {
		if data != nil {
			pixels := data[b] & 0xaa
			switch stage {
			case StageInverse:
				pixels = 0xaa | ((pixels ^ 0xaa) >> 1)
			case StageNormal:
				pixels = 0xaa | (pixels >> 1)
			}
			p1 := (pixels >> 6) & 0x03
			p2 := (pixels >> 4) & 0x03
			p3 := (pixels >> 2) & 0x03
			p4 := pixels & 0x03
			d.transferWait(p1 | p2<<2 | p3<<4 | p4<<6)
		} else {
			d.transferWait(fixed)
		}
	}

	t.DigitalWrite(PinChipSelect, true)

	// commit the line to the panel
	d.writeRegister(regOutputEnable, outputToPanel)

	t.BusDisable()
}

// FrameFixedTimed writes every scan line with fixed, over and over, until
// at least stageTimeMillis of wall time has elapsed. At least one full
// pass always runs. The elapsed accumulator survives clock counter
// wraparound; panel timing is thermally sensitive so short-changing a
// stage on a wrapped clock is not acceptable.
func (d *Driver) FrameFixedTimed(fixed byte, stageTimeMillis int) {
	remaining := int64(stageTimeMillis)
	for {
		start := d.port.NowMillis()
		for line := 0; line < d.profile.LinesPerDisplay; line++ {
			d.Line(line, nil, fixed, StageNormal, 0x00)
		}
		end := d.port.NowMillis()
		remaining -= int64(elapsedMillis(start, end))
		if remaining <= 0 {
			return
		}
	}
}

// FrameStage2 runs the conditioning stage: alternating all-white and
// checker passes for the band's timed durations, repeated per the band.
// It equalizes pixel charge between the erase and image stages.
func (d *Driver) FrameStage2() {
	c := d.comp
	for i := 0; i < c.stage2Repeat; i++ {
		d.FrameFixedTimed(0xff, c.stage2T1)
		d.FrameFixedTimed(0xaa, c.stage2T2)
	}
}

// FrameFixed13 runs the stage 1 or stage 3 sweep writing fixed at every
// visited line. stage selects both polarity and which compensation triple
// drives the sweep.
func (d *Driver) FrameFixed13(fixed byte, stage Stage) {
	d.frame13(stage, func(pos int) {
		d.Line(pos, nil, fixed, stage, 0x00)
	})
}

// FrameData13 runs the stage 1 or stage 3 sweep over a real frame buffer
// of at least Profile.BufferSize bytes. The buffer is borrowed for the
// duration of the call only.
func (d *Driver) FrameData13(image []byte, stage Stage) {
	total := d.profile.LinesPerDisplay
	bpl := d.profile.BytesPerLine
	d.frame13(stage, func(pos int) {
		if pos >= total {
			// the sweep touches one position past the last line; there
			// is no image data for it
			d.Line(pos, nil, 0x00, stage, 0x00)
			return
		}
		d.Line(pos, image[pos*bpl:(pos+1)*bpl], 0x00, stage, 0x00)
	})
}

// frame13 is the striped sweep shared by stages 1 and 3. Lines are not
// visited top to bottom: the outer loop starts at step-block and advances
// by step, visiting block consecutive offsets at each position, so the
// write order interleaves across the panel as the ink physics require.
// Positions off either edge flush the scan register instead; the first
// offset of each block on the final repeat writes a blank settle line.
func (d *Driver) frame13(stage Stage, write func(pos int)) {
	c := d.comp
	repeat, step, block := c.stage3Repeat, c.stage3Step, c.stage3Block
	if stage == StageInverse {
		repeat, step, block = c.stage1Repeat, c.stage1Step, c.stage1Block
	}

	total := d.profile.LinesPerDisplay

	for n := 0; n < repeat; n++ {
		for line := step - block; line < total+step; line += step {
			for offset := 0; offset < block; offset++ {
				pos := line + offset
				switch {
				case pos < 0 || pos > total:
					d.Line(NoLine, nil, 0x00, StageNormal, 0x00)
				case offset == 0 && n == repeat-1:
					d.Line(pos, nil, 0x00, StageNormal, 0x00)
				default:
					write(pos)
				}
			}
		}
	}
}

// Clear runs the full three stage refresh against a blank image, leaving
// the panel white.
func (d *Driver) Clear() {
	d.FrameFixed13(0xff, StageInverse)
	d.FrameStage2()
	d.FrameFixed13(0xaa, StageNormal)
}

// Image runs the full three stage refresh for one frame buffer: erase the
// previous charge pattern with the inverse pass, condition, then write the
// image. The buffer must hold Profile.BufferSize bytes.
func (d *Driver) Image(image []byte) error {
	if len(image) < d.profile.BufferSize() {
		return fmt.Errorf("epd: frame buffer is %d bytes, need %d", len(image), d.profile.BufferSize())
	}
	d.FrameData13(image, StageInverse)
	d.FrameStage2()
	d.FrameData13(image, StageNormal)
	return nil
}

// elapsedMillis returns end minus start on a millisecond counter that
// wraps at 2^32, giving the same value as if the counter had not wrapped.
func elapsedMillis(start, end uint32) uint32 {
	if end >= start {
		return end - start
	}
	return end + (math.MaxUint32 - start) + 1
}

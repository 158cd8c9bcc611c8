package epd

import (
	"math"
	"testing"
)

func TestElapsedMillis(t *testing.T) {
	tests := []struct {
		start, end, want uint32
	}{
		{0, 0, 0},
		{10, 250, 240},
		{math.MaxUint32, 0, 1},
		{math.MaxUint32 - 5, 10, 16},
		{4_000_000_000, 100, 294_967_396},
	}
	for _, tc := range tests {
		if got := elapsedMillis(tc.start, tc.end); got != tc.want {
			t.Errorf("elapsedMillis(%d, %d) = %d, want %d", tc.start, tc.end, got, tc.want)
		}
	}
}

func TestFrameFixedTimedRunsAtLeastOnePass(t *testing.T) {
	sim := newSim()
	d := New(sim, Size200)
	p := d.Profile()

	d.FrameFixedTimed(0x00, 0)
	if got := len(sim.lineFrames(p)); got != p.LinesPerDisplay {
		t.Fatalf("zero duration wrote %d lines, want one full pass of %d", got, p.LinesPerDisplay)
	}
}

func TestFrameFixedTimedRepeatsUntilElapsed(t *testing.T) {
	sim := newSim()
	sim.tick = 1 // each clock reading advances 1ms, so one pass costs 1ms
	d := New(sim, Size200)
	p := d.Profile()

	d.FrameFixedTimed(0xff, 3)
	if got := len(sim.lineFrames(p)); got != 3*p.LinesPerDisplay {
		t.Fatalf("3ms stage wrote %d lines, want 3 passes of %d", got, p.LinesPerDisplay)
	}
}

func TestFrameFixedTimedSurvivesClockWrap(t *testing.T) {
	sim := newSim()
	sim.clock = math.MaxUint32 - 1 // first reading lands on the counter max, second wraps to 0
	d := New(sim, Size200)
	p := d.Profile()

	d.FrameFixedTimed(0xaa, 1)
	if got := len(sim.lineFrames(p)); got != p.LinesPerDisplay {
		t.Fatalf("wrapped clock wrote %d lines, want a single pass of %d", got, p.LinesPerDisplay)
	}
}

func TestFrameStage2Alternation(t *testing.T) {
	sim := newSim()
	sim.tick = 100_000 // one clock reading dwarfs any band time, so each timed stage runs one pass
	d := New(sim, Size144)
	p := d.Profile()

	d.FrameStage2()

	frames := sim.lineFrames(p)
	if len(frames) != 2*d.comp.stage2Repeat*p.LinesPerDisplay {
		t.Fatalf("stage 2 wrote %d lines, want %d passes of %d",
			len(frames), 2*d.comp.stage2Repeat, p.LinesPerDisplay)
	}
	// passes alternate all-white and checker fill
	for i := 0; i < 2*d.comp.stage2Repeat; i++ {
		want := byte(0xff)
		if i%2 == 1 {
			want = 0xaa
		}
		for j := 0; j < p.LinesPerDisplay; j++ {
			_, odd, _, even := splitLine(p, frames[i*p.LinesPerDisplay+j])
			if !allEqual(odd, want) || !allEqual(even, want) {
				t.Fatalf("pass %d line %d fill %#02x, want %#02x", i, j, odd[0], want)
			}
		}
	}
}

// sweepVisit mirrors the documented stage 1/3 ordering so the recorded
// transactions can be compared position by position.
type sweepVisit struct {
	pos  int
	kind byte // 'f' flush, 's' settle, 'v' value
}

func expectedSweep(repeat, step, block, total int) []sweepVisit {
	var out []sweepVisit
	for n := 0; n < repeat; n++ {
		for line := step - block; line < total+step; line += step {
			for offset := 0; offset < block; offset++ {
				pos := line + offset
				switch {
				case pos < 0 || pos > total:
					out = append(out, sweepVisit{NoLine, 'f'})
				case offset == 0 && n == repeat-1:
					out = append(out, sweepVisit{pos, 's'})
				default:
					out = append(out, sweepVisit{pos, 'v'})
				}
			}
		}
	}
	return out
}

func TestSweepCoversEveryLine(t *testing.T) {
	for _, size := range []Size{Size144, Size200, Size270} {
		p := ProfileFor(size)
		for band := 0; band < 3; band++ {
			c := compensationFor(size, band)
			for _, triple := range [][3]int{
				{c.stage1Repeat, c.stage1Step, c.stage1Block},
				{c.stage3Repeat, c.stage3Step, c.stage3Block},
			} {
				visits := expectedSweep(triple[0], triple[1], triple[2], p.LinesPerDisplay)
				seen := make([]bool, p.LinesPerDisplay)
				for _, v := range visits {
					if v.pos >= 0 && v.pos < p.LinesPerDisplay {
						seen[v.pos] = true
					}
				}
				for i, ok := range seen {
					if !ok {
						t.Fatalf("%s band %d triple %v: line %d never visited", size, band, triple, i)
					}
				}
			}
		}
	}
}

func TestFrameFixed13MatchesSweep(t *testing.T) {
	sim := newSim()
	d := New(sim, Size144)
	p := d.Profile()
	c := d.comp

	d.FrameFixed13(0x55, StageInverse)

	visits := expectedSweep(c.stage1Repeat, c.stage1Step, c.stage1Block, p.LinesPerDisplay)
	frames := sim.lineFrames(p)
	if len(frames) != len(visits) {
		t.Fatalf("%d line transactions, want %d", len(frames), len(visits))
	}
	for i, v := range visits {
		_, odd, scan, _ := splitLine(p, frames[i])
		switch v.kind {
		case 'f':
			if !allZero(scan) || !allZero(odd) {
				t.Fatalf("visit %d: want flush with no scan activation", i)
			}
		case 's':
			if !allZero(odd) {
				t.Fatalf("visit %d (line %d): settle write carried ink data", i, v.pos)
			}
		case 'v':
			if !allEqual(odd, 0x55) {
				t.Fatalf("visit %d (line %d): fill %#02x, want 0x55", i, v.pos, odd[0])
			}
		}
		if v.kind != 'f' && v.pos < p.LinesPerDisplay {
			wantPos := (p.LinesPerDisplay - v.pos - 1) / 4
			wantVal := byte(0x03) << (2 * (v.pos % 4))
			if scan[wantPos] != wantVal {
				t.Fatalf("visit %d: scan byte %d = %#02x, want %#02x", i, wantPos, scan[wantPos], wantVal)
			}
		}
	}
}

func TestFrameData13WritesImageLines(t *testing.T) {
	sim := newSim()
	d := New(sim, Size144)
	p := d.Profile()
	c := d.comp

	image := make([]byte, p.BufferSize())
	for i := range image {
		image[i] = byte(i % 251)
	}
	d.FrameData13(image, StageNormal)

	visits := expectedSweep(c.stage3Repeat, c.stage3Step, c.stage3Block, p.LinesPerDisplay)
	frames := sim.lineFrames(p)
	if len(frames) != len(visits) {
		t.Fatalf("%d line transactions, want %d", len(frames), len(visits))
	}
	for i, v := range visits {
		if v.kind != 'v' || v.pos >= p.LinesPerDisplay {
			continue
		}
		_, odd, _, even := splitLine(p, frames[i])
		row := image[v.pos*p.BytesPerLine : (v.pos+1)*p.BytesPerLine]
		for j := 0; j < p.BytesPerLine; j++ {
			if odd[j] != encodeOdd(row[p.BytesPerLine-1-j], StageNormal) {
				t.Fatalf("visit %d line %d: odd byte %d mismatch", i, v.pos, j)
			}
			if even[j] != encodeEven(row[j], StageNormal) {
				t.Fatalf("visit %d line %d: even byte %d mismatch", i, v.pos, j)
			}
		}
	}
}

func TestImageRejectsShortBuffer(t *testing.T) {
	d := New(newSim(), Size200)
	if err := d.Image(make([]byte, d.Profile().BufferSize()-1)); err == nil {
		t.Fatal("short buffer accepted")
	}
}

package epd

import "testing"

func TestSetFactorBands(t *testing.T) {
	tests := []struct {
		temp   int
		offset int
	}{
		{-20, 0},
		{0, 0},
		{9, 0},
		{10, 1}, // lower boundary belongs to the middle band
		{25, 1},
		{40, 1}, // upper boundary too
		{41, 2},
		{50, 2},
	}
	d := New(newSim(), Size200)
	for _, tc := range tests {
		d.SetFactor(tc.temp)
		if d.TemperatureOffset() != tc.offset {
			t.Errorf("SetFactor(%d): offset=%d, want %d", tc.temp, d.TemperatureOffset(), tc.offset)
		}
	}
}

func TestSetFactorDefault(t *testing.T) {
	d := New(newSim(), Size144)
	if d.TemperatureOffset() != 1 {
		t.Fatalf("construction default offset=%d, want 1 (25C)", d.TemperatureOffset())
	}
}

func TestSetFactorSelectsBand(t *testing.T) {
	d := New(newSim(), Size200)

	d.SetFactor(5)
	if d.comp != &compensation200[0] {
		t.Fatal("cold band not selected for 5C on 2.0 panel")
	}
	if d.comp.stage1Repeat != 2 || d.comp.stage1Step != 6 || d.comp.stage1Block != 42 {
		t.Fatalf("cold band parameters: %+v", *d.comp)
	}

	d.SetFactor(45)
	if d.comp != &compensation200[2] {
		t.Fatal("hot band not selected for 45C on 2.0 panel")
	}
	if d.comp.stage2T1 != 196 || d.comp.stage2T2 != 196 || d.comp.stage2Repeat != 4 {
		t.Fatalf("hot band stage 2 parameters: %+v", *d.comp)
	}
}

func TestCompensationPerPanel(t *testing.T) {
	// the same temperature picks different parameters per panel model
	d144 := New(newSim(), Size144)
	d270 := New(newSim(), Size270)
	if d144.comp.stage1Block == d270.comp.stage1Block {
		t.Fatalf("1.44 and 2.7 share stage1Block=%d at 25C", d144.comp.stage1Block)
	}
	if d270.comp.stage1Step != 8 || d270.comp.stage1Block != 64 {
		t.Fatalf("2.7 middle band: %+v", *d270.comp)
	}
}

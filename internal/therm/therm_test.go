package therm

import (
	"context"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		msb, lsb byte
		want     float64
	}{
		{0x19, 0x00, 25.0},
		{0x00, 0x80, 0.5},
		{0x00, 0x00, 0.0},
		{0xe7, 0x00, -25.0},
		{0xff, 0x80, -0.5},
		{0x28, 0x40, 40.25},
	}
	for _, tc := range tests {
		if got := decode(tc.msb, tc.lsb); got != tc.want {
			t.Errorf("decode(%#02x, %#02x) = %v, want %v", tc.msb, tc.lsb, got, tc.want)
		}
	}
}

func TestFixedReader(t *testing.T) {
	r := NewFixedReader(8.5)
	got, err := r.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != 8.5 {
		t.Fatalf("fixed reader returned %v, want 8.5", got)
	}
}

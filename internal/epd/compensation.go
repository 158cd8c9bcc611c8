package epd

// compensation holds one temperature band of refresh parameters. Ink
// viscosity changes with temperature, so the three refresh stages run
// longer and repeat more as the panel gets colder. Stage 1 and stage 3
// sweep scan lines in a repeat/step/block pattern; stage 2 runs timed
// conditioning passes.
type compensation struct {
	stage1Repeat, stage1Step, stage1Block int
	stage2Repeat                          int
	stage2T1, stage2T2                    int // milliseconds
	stage3Repeat, stage3Step, stage3Block int
}

// Bands per panel: [0] below 10C, [1] 10..40C, [2] above 40C.

var compensation144 = [3]compensation{
	{2, 6, 42, 4, 392, 392, 2, 6, 42},
	{4, 2, 16, 4, 155, 155, 4, 2, 16},
	{4, 2, 16, 4, 155, 155, 4, 2, 16},
}

var compensation200 = [3]compensation{
	{2, 6, 42, 4, 392, 392, 2, 6, 42},
	{2, 2, 48, 4, 196, 196, 2, 2, 48},
	{4, 2, 48, 4, 196, 196, 4, 2, 48},
}

var compensation270 = [3]compensation{
	{2, 8, 64, 4, 392, 392, 2, 8, 64},
	{2, 8, 64, 4, 196, 196, 2, 8, 64},
	{4, 8, 64, 4, 196, 196, 4, 8, 64},
}

func compensationFor(size Size, offset int) *compensation {
	switch size {
	case Size200:
		return &compensation200[offset]
	case Size270:
		return &compensation270[offset]
	default:
		return &compensation144[offset]
	}
}

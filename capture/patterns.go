package capture

// Pattern fills a GRAY8 raster. seq advances once per generated frame so
// patterns can animate; fills must write every byte of buf.
type Pattern func(buf []byte, width, height int, seq uint64)

// FillGradient renders a horizontal luminance ramp that scrolls one sample
// per frame. Useful for spotting dropped or repeated frames by eye.
func FillGradient(buf []byte, width, height int, seq uint64) {
	shift := int(seq % uint64(width))
	for y := 0; y < height; y++ {
		row := buf[y*width : (y+1)*width]
		for x := range row {
			row[x] = byte(((x + shift) % width) * 255 / width)
		}
	}
}

// FillBars renders 8 vertical gray bars from black to white, the GRAY8
// cousin of SMPTE color bars.
func FillBars(buf []byte, width, height int, seq uint64) {
	levels := [8]byte{0x00, 0x24, 0x49, 0x6D, 0x92, 0xB6, 0xDB, 0xFF}
	barWidth := width / 8
	if barWidth == 0 {
		barWidth = 1
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := x / barWidth
			if idx >= 8 {
				idx = 7
			}
			buf[y*width+x] = levels[idx]
		}
	}
}

// FillCheckerboard renders an 8x8-cell checkerboard whose phase flips every
// 16 frames, so motion is visible even on a static scene.
func FillCheckerboard(buf []byte, width, height int, seq uint64) {
	phase := int(seq/16) & 1
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			cell := (x/8 + y/8 + phase) & 1
			if cell == 1 {
				buf[y*width+x] = 0xFF
			} else {
				buf[y*width+x] = 0x00
			}
		}
	}
}

// PatternByName resolves a configuration string to a Pattern.
// Known names: "gradient", "bars", "checkerboard".
func PatternByName(name string) (Pattern, bool) {
	switch name {
	case "gradient":
		return FillGradient, true
	case "bars":
		return FillBars, true
	case "checkerboard":
		return FillCheckerboard, true
	default:
		return nil, false
	}
}

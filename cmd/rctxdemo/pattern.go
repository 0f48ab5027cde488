package main

// pattern renders an animated RGBA8 test card into a reusable buffer:
// vertical color bars with a diagonal sweep, so scaling and frame
// progression are both visible in a snapshot.
type pattern struct {
	width, height int
	buf           []byte
}

var bars = [...][3]byte{
	{0xc0, 0xc0, 0xc0},
	{0xc0, 0xc0, 0x00},
	{0x00, 0xc0, 0xc0},
	{0x00, 0xc0, 0x00},
	{0xc0, 0x00, 0xc0},
	{0xc0, 0x00, 0x00},
	{0x00, 0x00, 0xc0},
}

func newPattern(width, height int) *pattern {
	return &pattern{width: width, height: height, buf: make([]byte, width*height*4)}
}

func (p *pattern) render(frame int) []byte {
	sweep := frame % (p.width + p.height)
	for y := 0; y < p.height; y++ {
		row := p.buf[y*p.width*4:]
		for x := 0; x < p.width; x++ {
			c := bars[x*len(bars)/p.width]
			px := row[x*4 : x*4+4]
			if x+y == sweep {
				px[0], px[1], px[2] = 0xff, 0xff, 0xff
			} else {
				px[0], px[1], px[2] = c[0], c[1], c[2]
			}
			px[3] = 0xff
		}
	}
	return p.buf
}

// Package rom normalizes N64 cartridge images to big-endian (z64) byte
// order and parses their header.
package rom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/japanese"
)

// HeaderSize is the size of the cartridge header.
const HeaderSize = 0x40

// Format is the byte order a ROM image was dumped in.
type Format int

const (
	// Unknown is an unrecognized image.
	Unknown Format = iota
	// Z64 is native big-endian order.
	Z64
	// V64 has each 16-bit halfword byte-swapped.
	V64
	// N64 has each 32-bit word byte-reversed.
	N64
)

func (f Format) String() string {
	switch f {
	case Z64:
		return "z64"
	case V64:
		return "v64"
	case N64:
		return "n64"
	default:
		return "unknown"
	}
}

// First word of the PI domain configuration in each byte order.
var (
	magicZ64 = []byte{0x80, 0x37, 0x12, 0x40}
	magicV64 = []byte{0x37, 0x80, 0x40, 0x12}
	magicN64 = []byte{0x40, 0x12, 0x37, 0x80}
)

// ROM parsing errors.
var (
	// ErrTooShort is returned when the image is smaller than the header.
	ErrTooShort = errors.New("rom: image shorter than header")

	// ErrUnknownFormat is returned when the first word matches no known
	// byte order.
	ErrUnknownFormat = errors.New("rom: unrecognized byte order")

	// ErrMisaligned is returned when a byte-swapped image is not a whole
	// number of words long.
	ErrMisaligned = errors.New("rom: image size not aligned to its word size")
)

// Detect returns the byte order of data.
func Detect(data []byte) Format {
	if len(data) < 4 {
		return Unknown
	}
	switch {
	case bytes.Equal(data[:4], magicZ64):
		return Z64
	case bytes.Equal(data[:4], magicV64):
		return V64
	case bytes.Equal(data[:4], magicN64):
		return N64
	}
	return Unknown
}

// Normalize returns data in z64 order along with the format it was in.
// A z64 image is returned as is; other formats are converted into a new
// slice.
func Normalize(data []byte) ([]byte, Format, error) {
	if len(data) < HeaderSize {
		return nil, Unknown, fmt.Errorf("%w: %d bytes", ErrTooShort, len(data))
	}
	f := Detect(data)
	switch f {
	case Z64:
		return data, f, nil
	case V64:
		if len(data)%2 != 0 {
			return nil, f, fmt.Errorf("%w: %d bytes", ErrMisaligned, len(data))
		}
		out := make([]byte, len(data))
		for i := 0; i < len(data); i += 2 {
			out[i], out[i+1] = data[i+1], data[i]
		}
		return out, f, nil
	case N64:
		if len(data)%4 != 0 {
			return nil, f, fmt.Errorf("%w: %d bytes", ErrMisaligned, len(data))
		}
		out := make([]byte, len(data))
		for i := 0; i < len(data); i += 4 {
			binary.BigEndian.PutUint32(out[i:], binary.LittleEndian.Uint32(data[i:]))
		}
		return out, f, nil
	}
	return nil, Unknown, fmt.Errorf("%w: % x", ErrUnknownFormat, data[:4])
}

// Header is the decoded cartridge header.
//
// See https://n64brew.dev/wiki/ROM_Header
type Header struct {
	ClockRate   uint32
	BootAddress uint32
	Libultra    uint32
	CheckCode   uint64
	Title       string
	Category    byte
	UniqueCode  string
	Destination byte
	Version     byte
}

// GameCode returns the four-character code, e.g. "NFXE".
func (h Header) GameCode() string {
	return string([]byte{h.Category}) + h.UniqueCode + string([]byte{h.Destination})
}

// ParseHeader decodes the header of a z64-ordered image. The title is
// decoded as Shift-JIS, which is a superset of the ASCII most titles use.
func ParseHeader(z64 []byte) (Header, error) {
	if len(z64) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrTooShort, len(z64))
	}
	if Detect(z64) != Z64 {
		return Header{}, fmt.Errorf("%w: header not in z64 order", ErrUnknownFormat)
	}
	h := Header{
		ClockRate:   binary.BigEndian.Uint32(z64[0x04:]),
		BootAddress: binary.BigEndian.Uint32(z64[0x08:]),
		Libultra:    binary.BigEndian.Uint32(z64[0x0c:]),
		CheckCode:   binary.BigEndian.Uint64(z64[0x10:]),
		Category:    z64[0x3b],
		UniqueCode:  string(z64[0x3c:0x3e]),
		Destination: z64[0x3e],
		Version:     z64[0x3f],
	}

	raw := bytes.TrimRight(z64[0x20:0x34], "\x00 ")
	title, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
	if err != nil {
		// Undecodable titles are kept byte for byte.
		title = raw
	}
	h.Title = strings.TrimSpace(string(title))
	return h, nil
}

// Image is a normalized ROM.
type Image struct {
	Data   []byte // z64 order
	Format Format // order the image was read in
	Header Header
}

// Parse normalizes data and decodes its header.
func Parse(data []byte) (*Image, error) {
	z64, f, err := Normalize(data)
	if err != nil {
		return nil, err
	}
	h, err := ParseHeader(z64)
	if err != nil {
		return nil, err
	}
	return &Image{Data: z64, Format: f, Header: h}, nil
}

package jpeg2k

import (
	"fmt"
	"image/color"

	"github.com/sysfce2/go-jpeg2k/internal/box"
)

// maxPaletteColors is the number of distinct colors an 8-bit palette
// index can address.
const maxPaletteColors = 256

// Palette is the ordered color table built from a container's palette
// box. Each color holds Channels component bytes.
type Palette struct {
	// Channels is the number of components per color.
	Channels int

	// Colors lists the distinct colors in order of first appearance.
	Colors [][]uint8
}

// Len returns the number of distinct colors in the palette.
func (p *Palette) Len() int { return len(p.Colors) }

// Color returns the component bytes of entry i.
func (p *Palette) Color(i int) []uint8 { return p.Colors[i] }

// ColorModel returns the palette as an image/color palette. Colors with
// fewer than three channels are widened to gray; a fourth channel is
// taken as alpha.
func (p *Palette) ColorModel() color.Palette {
	out := make(color.Palette, len(p.Colors))
	for i, c := range p.Colors {
		rgba := color.NRGBA{A: 0xFF}
		switch len(c) {
		case 0:
		case 1:
			rgba.R, rgba.G, rgba.B = c[0], c[0], c[0]
		case 2:
			rgba.R, rgba.G, rgba.B, rgba.A = c[0], c[0], c[0], c[1]
		case 3:
			rgba.R, rgba.G, rgba.B = c[0], c[1], c[2]
		default:
			rgba.R, rgba.G, rgba.B, rgba.A = c[0], c[1], c[2], c[3]
		}
		out[i] = rgba
	}
	return out
}

// paletteBuilder accumulates palette colors, assigning each distinct
// tuple an index on first occurrence. Repeats map back to the index
// already assigned.
type paletteBuilder struct {
	channels int
	index    map[string]int
	colors   [][]uint8
}

func newPaletteBuilder(channels int) *paletteBuilder {
	return &paletteBuilder{
		channels: channels,
		index:    make(map[string]int),
	}
}

// add returns the index for the given color, assigning the next free one
// when the color has not been seen before. It fails with
// ErrPaletteOverflow when a new color would exceed the 8-bit index space.
func (b *paletteBuilder) add(entry []uint8) (int, error) {
	key := string(entry)
	if i, ok := b.index[key]; ok {
		return i, nil
	}
	if len(b.colors) >= maxPaletteColors {
		return 0, fmt.Errorf("%w: more than %d entries", ErrPaletteOverflow, maxPaletteColors)
	}
	i := len(b.colors)
	c := make([]uint8, len(entry))
	copy(c, entry)
	b.index[key] = i
	b.colors = append(b.colors, c)
	return i, nil
}

// palette returns the accumulated color table.
func (b *paletteBuilder) palette() *Palette {
	return &Palette{Channels: b.channels, Colors: b.colors}
}

// parsePalette reads the contents of a palette box: an entry count, a
// channel count, per-channel bit depths, then the packed entries. It
// returns nil without reading the entries when any channel is deeper
// than 8 bits, leaving the caller's mode untouched.
func parsePalette(r *box.Reader) (*Palette, error) {
	ne, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	npc, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	depths, err := r.ReadBytes(int(npc))
	if err != nil {
		return nil, err
	}
	for _, d := range depths {
		if d > 8 {
			return nil, nil
		}
	}

	b := newPaletteBuilder(int(npc))
	for i := 0; i < int(ne); i++ {
		entry, err := r.ReadBytes(int(npc))
		if err != nil {
			return nil, err
		}
		if _, err := b.add(entry); err != nil {
			return nil, err
		}
	}
	return b.palette(), nil
}

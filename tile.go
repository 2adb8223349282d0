package jpeg2k

import "image"

// TileDescriptor carries everything the codec engine needs for one
// decode pass: the target rectangle and the parameters captured when the
// file was opened. Descriptors are immutable; changing the reduction
// level or layer count on a File publishes a new descriptor rather than
// modifying one already handed out.
type TileDescriptor struct {
	// Rect is the full image rectangle at the selected reduction level.
	Rect image.Rectangle

	// Codec selects the stream form the engine must expect: FormatJ2K
	// for a raw codestream, FormatJP2 for a container.
	Codec Format

	// Reduce is the resolution-reduction exponent.
	Reduce int

	// Layers is the number of quality layers to decode; 0 means all.
	Layers int

	// FD is the source's underlying file descriptor, or -1 when the
	// source is not an operating-system file.
	FD int

	// Length is the total source length in bytes, or -1 when unknown.
	Length int64
}

// reducedSize scales one full-resolution dimension down by 2^r, rounding
// to the nearest integer. r must not be negative.
func reducedSize(d, r int) int {
	if r <= 0 {
		return d
	}
	if r >= 63 {
		return 0
	}
	power := int64(1) << uint(r)
	return int((int64(d) + power>>1) / power)
}

// makeTile assembles the descriptor for a full-image decode. The target
// rectangle is always derived from the full-resolution dimensions, so
// repeated calls at the same reduction level agree and level 0 restores
// the original size.
func makeTile(codec Format, width, height, reduce, layers, fd int, length int64) TileDescriptor {
	return TileDescriptor{
		Rect:   image.Rect(0, 0, reducedSize(width, reduce), reducedSize(height, reduce)),
		Codec:  codec,
		Reduce: reduce,
		Layers: layers,
		FD:     fd,
		Length: length,
	}
}

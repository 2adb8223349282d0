package codestream

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sysfce2/go-jpeg2k/internal/box"
)

// sizFixedLen is the length of the size segment through the component
// count: the length field itself, the capability field, eight 32-bit
// geometry fields and the 16-bit component count.
const sizFixedLen = 38

// Header holds the size marker segment (SIZ) fields describing image
// geometry and component layout.
type Header struct {
	// Profile is the capability field (Rsiz).
	Profile uint16

	// Image grid extents and origin.
	ImageWidth   uint32
	ImageHeight  uint32
	ImageXOffset uint32
	ImageYOffset uint32

	// Tile grid extents and origin.
	TileWidth   uint32
	TileHeight  uint32
	TileXOffset uint32
	TileYOffset uint32

	// NumComponents is the declared component count; Components holds the
	// per-component records actually present in the segment.
	NumComponents uint16
	Components    []ComponentInfo
}

// Width returns the image width in pixels.
func (h *Header) Width() int {
	return int(h.ImageWidth - h.ImageXOffset)
}

// Height returns the image height in pixels.
func (h *Header) Height() int {
	return int(h.ImageHeight - h.ImageYOffset)
}

// ComponentInfo holds per-component size information from the SIZ segment.
type ComponentInfo struct {
	// Bit depth of the component (Ssiz).
	// If bit 7 is set, the component is signed.
	BitDepth uint8

	// Horizontal subsampling factor (XRsiz).
	SubsamplingX uint8

	// Vertical subsampling factor (YRsiz).
	SubsamplingY uint8
}

// Precision returns the bit precision (1-38).
func (c ComponentInfo) Precision() int {
	return int(c.BitDepth&0x7F) + 1
}

// IsSigned returns true if the component values are signed.
func (c ComponentInfo) IsSigned() bool {
	return c.BitDepth&0x80 != 0
}

// ParseSIZ reads the size marker segment from a codestream positioned just
// after the SOC and SIZ marker codes.
func ParseSIZ(r io.Reader) (*Header, error) {
	var lbuf [2]byte
	if _, err := io.ReadFull(r, lbuf[:]); err != nil {
		return nil, fmt.Errorf("%w: size segment length", box.ErrTruncated)
	}
	lsiz := binary.BigEndian.Uint16(lbuf[:])
	if int(lsiz) < sizFixedLen {
		return nil, fmt.Errorf("%w: size segment length %d", box.ErrMalformedHeader, lsiz)
	}
	seg := make([]byte, int(lsiz)-2)
	if _, err := io.ReadFull(r, seg); err != nil {
		return nil, fmt.Errorf("%w: size segment body", box.ErrTruncated)
	}

	h := &Header{
		Profile:       binary.BigEndian.Uint16(seg[0:2]),
		ImageWidth:    binary.BigEndian.Uint32(seg[2:6]),
		ImageHeight:   binary.BigEndian.Uint32(seg[6:10]),
		ImageXOffset:  binary.BigEndian.Uint32(seg[10:14]),
		ImageYOffset:  binary.BigEndian.Uint32(seg[14:18]),
		TileWidth:     binary.BigEndian.Uint32(seg[18:22]),
		TileHeight:    binary.BigEndian.Uint32(seg[22:26]),
		TileXOffset:   binary.BigEndian.Uint32(seg[26:30]),
		TileYOffset:   binary.BigEndian.Uint32(seg[30:34]),
		NumComponents: binary.BigEndian.Uint16(seg[34:36]),
	}
	for i, off := 0, 36; i < int(h.NumComponents) && off+3 <= len(seg); i, off = i+1, off+3 {
		h.Components = append(h.Components, ComponentInfo{
			BitDepth:     seg[off],
			SubsamplingX: seg[off+1],
			SubsamplingY: seg[off+2],
		})
	}

	logrus.WithFields(logrus.Fields{
		"width":      h.Width(),
		"height":     h.Height(),
		"components": h.NumComponents,
	}).Debug("parsed codestream size segment")
	return h, nil
}

// Comment holds a comment marker segment: its registration value and the
// payload bytes that follow it.
type Comment struct {
	Registration uint16
	Data         []byte
}

// ScanComment reads the marker segments that follow the size segment and
// returns the first comment found. It returns nil without error when a
// tile-part begins, the codestream ends, or the source is exhausted before
// any comment appears.
func ScanComment(r io.Reader) (*Comment, error) {
	var buf [2]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: marker code", box.ErrTruncated)
		}
		marker := Marker(binary.BigEndian.Uint16(buf[:]))
		if marker == SOT || marker == EOC {
			return nil, nil
		}

		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: %v segment length", box.ErrTruncated, marker)
		}
		length := binary.BigEndian.Uint16(buf[:])
		if length < 2 {
			return nil, fmt.Errorf("%w: %v segment length %d", box.ErrMalformedHeader, marker, length)
		}

		if marker == COM {
			payload := make([]byte, int(length)-2)
			if _, err := io.ReadFull(r, payload); err != nil {
				return nil, fmt.Errorf("%w: comment segment body", box.ErrTruncated)
			}
			c := &Comment{}
			if len(payload) >= 2 {
				c.Registration = binary.BigEndian.Uint16(payload[:2])
				c.Data = payload[2:]
			}
			return c, nil
		}

		logrus.Tracef("skipping %v segment (%d bytes)", marker, length)
		if _, err := io.CopyN(io.Discard, r, int64(length)-2); err != nil {
			return nil, fmt.Errorf("%w: %v segment body", box.ErrTruncated, marker)
		}
	}
}

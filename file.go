package jpeg2k

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sysfce2/go-jpeg2k/internal/box"
	"github.com/sysfce2/go-jpeg2k/internal/codestream"
)

// File is an opened JPEG 2000 stream: the parsed header plus the decode
// state handed to the codec engine.
type File struct {
	Header

	src    io.Reader
	codec  Format // stream form passed to the engine
	fd     int
	length int64
	offset int64 // source position at which the stream began

	reduce int
	layers int
	tile   TileDescriptor
}

// Open parses the image headers from r and returns a handle positioned
// for decoding. The sub-format is detected from the leading bytes: a raw
// codestream or a JP2/JPX container. Anything else fails with
// ErrNotJPEG2000.
//
// When r is an *os.File its descriptor and size are recorded for the
// codec engine; other seekable sources contribute their size only.
func Open(r io.Reader) (*File, error) {
	fd, length, offset := sourceInfo(r)
	f := &File{src: r, fd: fd, length: length, offset: offset}

	br := bufio.NewReader(r)
	sig, err := br.Peek(len(sigJP2))
	if err != nil && err != io.EOF {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(sig, []byte(sigJ2K)):
		logrus.Debug("detected raw codestream signature")
		br.Discard(len(sigJ2K))
		f.codec = FormatJ2K
		if err := f.openCodestream(br); err != nil {
			return nil, err
		}
	case bytes.HasPrefix(sig, []byte(sigJP2)):
		logrus.Debug("detected container signature box")
		br.Discard(len(sigJP2))
		f.codec = FormatJP2
		if err := f.openContainer(br); err != nil {
			return nil, err
		}
	default:
		return nil, ErrNotJPEG2000
	}

	f.tile = makeTile(f.codec, f.Width, f.Height, f.reduce, f.layers, f.fd, f.length)
	return f, nil
}

// sourceInfo reports the file descriptor, total byte length and current
// position of the source: from fstat for operating-system files, from
// seeking for other seekable sources, and (-1, -1, 0) when neither is
// available. The read position is left where it was found.
func sourceInfo(r io.Reader) (fd int, length, offset int64) {
	if f, ok := r.(*os.File); ok {
		if st, err := f.Stat(); err == nil {
			pos, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				pos = 0
			}
			return int(f.Fd()), st.Size(), pos
		}
	}
	if s, ok := r.(io.Seeker); ok {
		pos, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return -1, -1, 0
		}
		end, err := s.Seek(0, io.SeekEnd)
		if err != nil {
			return -1, -1, 0
		}
		if _, err := s.Seek(pos, io.SeekStart); err != nil {
			return -1, -1, 0
		}
		return -1, end, pos
	}
	return -1, -1, 0
}

// openCodestream parses a raw codestream: the size segment directly
// behind the signature bytes, then a scan for a comment segment.
func (f *File) openCodestream(r io.Reader) error {
	hdr, err := codestream.ParseSIZ(r)
	if err != nil {
		return err
	}
	f.Format = FormatJ2K
	f.MIMEType = MIMETypeJP2
	f.Width = hdr.Width()
	f.Height = hdr.Height()

	nc := int(hdr.NumComponents)
	deep := false
	if nc == 1 {
		if len(hdr.Components) == 0 {
			return fmt.Errorf("%w: missing component record", ErrMalformedHeader)
		}
		deep = hdr.Components[0].Precision() > 8
	}
	f.Mode, err = modeForComponents(nc, deep)
	if err != nil {
		return err
	}

	c, err := codestream.ScanComment(r)
	if err != nil {
		return err
	}
	if c != nil {
		f.Comment = c.Data
		f.CommentRegistration = c.Registration
	}
	return nil
}

// openContainer parses the box structure behind the signature box, then
// looks for a comment inside the embedded codestream.
func (f *File) openContainer(r io.Reader) error {
	bound := box.Unbounded()
	if f.length >= 0 {
		bound = box.FiniteBound(f.length - f.offset - int64(len(sigJP2)))
	}
	h, err := parseContainer(box.NewReader(r, bound))
	if err != nil {
		return err
	}
	f.Header = *h
	return f.scanEmbeddedComment(r)
}

// scanEmbeddedComment checks whether a contiguous-codestream box starts
// directly behind the JP2 header box and, if so, scans its header
// segments for a comment. Files with other boxes in between simply keep
// no comment.
func (f *File) scanEmbeddedComment(r io.Reader) error {
	var probe [12]byte
	if _, err := io.ReadFull(r, probe[:]); err != nil {
		return nil
	}
	if !bytes.HasSuffix(probe[:], []byte("jp2c"+sigJ2K)) {
		return nil
	}

	var lbuf [2]byte
	if _, err := io.ReadFull(r, lbuf[:]); err != nil {
		return fmt.Errorf("%w: size segment length", ErrTruncated)
	}
	lsiz := binary.BigEndian.Uint16(lbuf[:])
	if lsiz < 2 {
		return fmt.Errorf("%w: size segment length %d", ErrMalformedHeader, lsiz)
	}
	if _, err := io.CopyN(io.Discard, r, int64(lsiz)-2); err != nil {
		return nil
	}

	c, err := codestream.ScanComment(r)
	if err != nil {
		return err
	}
	if c != nil {
		f.Comment = c.Data
		f.CommentRegistration = c.Registration
		logrus.WithField("bytes", len(c.Data)).Debug("found embedded codestream comment")
	}
	return nil
}

// Tile returns the descriptor the codec engine decodes from.
func (f *File) Tile() TileDescriptor { return f.tile }

// Reduce returns the current resolution-reduction exponent.
func (f *File) Reduce() int { return f.reduce }

// SetReduce selects a power-of-two downsampled decode target: each
// dimension shrinks by 2^levels, rounded to nearest. The size is always
// rederived from the full-resolution header, so successive calls do not
// compound and level 0 restores the original size. Negative levels are
// treated as 0.
func (f *File) SetReduce(levels int) {
	if levels < 0 {
		levels = 0
	}
	f.reduce = levels
	f.tile = makeTile(f.codec, f.Width, f.Height, f.reduce, f.layers, f.fd, f.length)
}

// Layers returns the number of quality layers selected for decoding.
func (f *File) Layers() int { return f.layers }

// SetLayers limits decoding to the first n quality layers; 0 means all.
func (f *File) SetLayers(n int) {
	f.layers = n
	f.tile = makeTile(f.codec, f.Width, f.Height, f.reduce, f.layers, f.fd, f.length)
}

// Size returns the pixel dimensions the next decode will produce, after
// any reduction.
func (f *File) Size() (width, height int) {
	return f.tile.Rect.Dx(), f.tile.Rect.Dy()
}

// Bounds returns the rectangle the next decode will cover.
func (f *File) Bounds() image.Rectangle { return f.tile.Rect }

// Decode runs the registered engine over the source, which must be
// seekable so the engine can read the stream from its start.
func (f *File) Decode() (image.Image, error) {
	if decodeEngine == nil {
		return nil, ErrNoEngine
	}
	s, ok := f.src.(io.ReadSeeker)
	if !ok {
		return nil, fmt.Errorf("jpeg2k: decoding requires a seekable source")
	}
	if _, err := s.Seek(f.offset, io.SeekStart); err != nil {
		return nil, err
	}
	return decodeEngine.Decode(s, f.tile)
}

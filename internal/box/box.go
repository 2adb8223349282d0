// Package box implements bounds-checked reading and writing of the nested
// box structure used by JP2 files.
//
// A box consists of:
//   - 4-byte big-endian length (1 selects the extended form, below)
//   - 4-byte type code
//   - optional 8-byte extended length (when the length field is 1)
//   - box contents
//
// The Reader tracks two independent bounds on every read: the remaining
// contents of the box currently being read, and the total length of the
// enclosing stream when it is known. A read that would cross either bound
// fails before any bytes are consumed, so a single corrupted length field
// cannot cause reads past the true end of input.
package box

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Box type codes
const (
	// Signature and file type
	TypeJP2Signature Type = 0x6A502020 // "jP  " - JP2 signature box
	TypeFileType     Type = 0x66747970 // "ftyp" - File type box

	// JP2 header
	TypeJP2Header    Type = 0x6A703268 // "jp2h" - JP2 header super-box
	TypeImageHeader  Type = 0x69686472 // "ihdr" - Image header box
	TypeBitsPerComp  Type = 0x62706363 // "bpcc" - Bits per component box
	TypeColorSpec    Type = 0x636F6C72 // "colr" - Color specification box
	TypePalette      Type = 0x70636C72 // "pclr" - Palette box
	TypeComponentMap Type = 0x636D6170 // "cmap" - Component mapping box
	TypeChannelDef   Type = 0x63646566 // "cdef" - Channel definition box
	TypeResolution   Type = 0x72657320 // "res " - Resolution super-box
	TypeCaptureRes   Type = 0x72657363 // "resc" - Capture resolution box
	TypeDisplayRes   Type = 0x72657364 // "resd" - Default display resolution box

	// Codestream
	TypeContCodestream Type = 0x6A703263 // "jp2c" - Contiguous codestream box

	// Metadata
	TypeXML      Type = 0x786D6C20 // "xml " - XML box
	TypeUUID     Type = 0x75756964 // "uuid" - UUID box
	TypeUUIDInfo Type = 0x75696E66 // "uinf" - UUID info super-box
	TypeUUIDList Type = 0x756C7374 // "ulst" - UUID list box
	TypeURL      Type = 0x75726C20 // "url " - URL box

	// IPR
	TypeIPR Type = 0x6A703269 // "jp2i" - IPR box
)

// File type box brands.
const (
	BrandJP2 Type = 0x6A703220 // "jp2 " - baseline JP2
	BrandJPX Type = 0x6A707820 // "jpx " - extended (Part 2) profile
)

// Parse failure sentinels. Callers match them with errors.Is; every error
// returned by this package wraps exactly one of them.
var (
	// ErrTruncated reports that the source ended before a declared field
	// or box could be read in full.
	ErrTruncated = errors.New("jpeg2k: truncated input")

	// ErrMalformedHeader reports a length or offset that violates the
	// current box boundary or the enclosing stream bound.
	ErrMalformedHeader = errors.New("jpeg2k: malformed header")
)

// maxSubBoxContents caps the contents buffered when entering a box's
// sub-boxes, so a corrupted length in an unbounded stream cannot force an
// arbitrarily large allocation.
const maxSubBoxContents = 1 << 30 // 1GB

// Type represents a 4-byte box type code.
type Type uint32

// String returns the 4-character type code.
func (t Type) String() string {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(t))
	return string(b)
}

// Bound is the number of bytes readable from a stream, when known.
// The zero value is unbounded.
type Bound struct {
	known bool
	n     int64
}

// FiniteBound returns a bound of exactly n bytes.
func FiniteBound(n int64) Bound {
	return Bound{known: true, n: n}
}

// Unbounded returns the absent bound, for sources whose length cannot be
// determined. Reads are then checked only against box boundaries.
func Unbounded() Bound {
	return Bound{}
}

// Finite reports the byte limit and whether one is known.
func (b Bound) Finite() (int64, bool) {
	return b.n, b.known
}

// Reader reads one level of a nested box stream sequentially.
//
// All field reads are checked against the remaining length of the current
// box and against the outer bound. Requesting the next box before the
// current one has been fully consumed skips the unread remainder.
type Reader struct {
	r     io.Reader
	bound Bound
	pos   int64 // bytes consumed from r

	inBox     bool
	remaining int64 // unread contents of the current box, valid when inBox
}

// NewReader returns a Reader over r. The bound is the total number of bytes
// readable from r when known; pass Unbounded() for streaming sources.
func NewReader(r io.Reader, bound Bound) *Reader {
	return &Reader{r: r, bound: bound}
}

// checkRead reports whether n more bytes may be read without crossing the
// outer bound or the current box boundary. Headroom is tested by
// subtraction: pos never exceeds a known limit, so limit-pos cannot wrap,
// while pos+n can when a corrupted box declares a length near the int64
// maximum.
func (r *Reader) checkRead(n int64) error {
	if limit, ok := r.bound.Finite(); ok && n > limit-r.pos {
		return fmt.Errorf("%w: %d-byte read crosses the stream bound", ErrMalformedHeader, n)
	}
	if r.inBox && n > r.remaining {
		return fmt.Errorf("%w: %d-byte read crosses the box boundary", ErrMalformedHeader, n)
	}
	return nil
}

// readBytes reads exactly n bytes, enforcing both bounds.
func (r *Reader) readBytes(n int64) ([]byte, error) {
	if err := r.checkRead(n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, fmt.Errorf("%w: expected %d more bytes", ErrTruncated, n)
	}
	r.pos += n
	if r.inBox {
		r.remaining -= n
	}
	return buf, nil
}

// skip discards n bytes without buffering them.
func (r *Reader) skip(n int64) error {
	m, err := io.CopyN(io.Discard, r.r, n)
	r.pos += m
	if r.inBox {
		r.remaining -= m
	}
	if err != nil {
		return fmt.Errorf("%w: expected %d more bytes", ErrTruncated, n-m)
	}
	return nil
}

// ReadBytes reads exactly n bytes of the current box contents.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative read", ErrMalformedHeader)
	}
	return r.readBytes(int64(n))
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a big-endian 16-bit field.
func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadUint32 reads a big-endian 32-bit field.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadUint64 reads a big-endian 64-bit field.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadTag reads a 4-byte type code field.
func (r *Reader) ReadTag() (Type, error) {
	v, err := r.ReadUint32()
	return Type(v), err
}

// EnterSubBoxes consumes the remaining contents of the current box and
// returns a fresh Reader bounded to exactly those bytes.
func (r *Reader) EnterSubBoxes() (*Reader, error) {
	if !r.inBox {
		return nil, fmt.Errorf("%w: no box is open", ErrMalformedHeader)
	}
	size := r.remaining
	if size > maxSubBoxContents {
		return nil, fmt.Errorf("%w: box contents too large: %d bytes", ErrMalformedHeader, size)
	}
	data, err := r.readBytes(size)
	if err != nil {
		return nil, err
	}
	return NewReader(bytes.NewReader(data), FiniteBound(size)), nil
}

// Remaining returns the number of unread content bytes in the current box,
// or 0 when no box is open.
func (r *Reader) Remaining() int64 {
	if !r.inBox {
		return 0
	}
	return r.remaining
}

// HasNextBox reports whether, under the known bound, at least one more byte
// follows the unread remainder of the current box. It is unconditionally
// true when no bound is known; the caller then detects the end of the
// stream by the next read failing.
func (r *Reader) HasNextBox() bool {
	limit, ok := r.bound.Finite()
	if !ok {
		return true
	}
	var rem int64
	if r.inBox {
		rem = r.remaining
	}
	return rem < limit-r.pos
}

// NextBoxType skips whatever is left of the current box, reads the next box
// header and returns its type code. The box's declared length must be at
// least its own header size (8 bytes, or 16 in the extended form) and must
// fit under the outer bound.
func (r *Reader) NextBoxType() (Type, error) {
	if r.inBox && r.remaining > 0 {
		if err := r.skip(r.remaining); err != nil {
			return 0, err
		}
	}
	r.inBox = false
	r.remaining = 0

	hdr, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	length := uint64(binary.BigEndian.Uint32(hdr[0:4]))
	typ := Type(binary.BigEndian.Uint32(hdr[4:8]))
	headerLen := uint64(8)

	if length == 1 {
		ext, err := r.readBytes(8)
		if err != nil {
			return 0, err
		}
		length = binary.BigEndian.Uint64(ext)
		headerLen = 16
	}

	if length < headerLen {
		return 0, fmt.Errorf("%w: box length %d smaller than its %d-byte header",
			ErrMalformedHeader, length, headerLen)
	}
	contents := length - headerLen
	if contents > math.MaxInt64 {
		return 0, fmt.Errorf("%w: box length %d out of range", ErrMalformedHeader, length)
	}
	if err := r.checkRead(int64(contents)); err != nil {
		return 0, err
	}

	r.inBox = true
	r.remaining = int64(contents)
	return typ, nil
}

// ImageHeaderBox holds the fields of the "ihdr" box this parser consumes.
// Trailing ihdr fields (compression type, colorspace-unknown, IPR) are left
// in the box and skipped with it.
type ImageHeaderBox struct {
	Height           uint32
	Width            uint32
	NumComponents    uint16
	BitsPerComponent uint8 // top bit: signedness flag; low 7 bits: magnitude
}

// Parse reads the image header fields from the current box.
func (b *ImageHeaderBox) Parse(r *Reader) error {
	var err error
	if b.Height, err = r.ReadUint32(); err != nil {
		return err
	}
	if b.Width, err = r.ReadUint32(); err != nil {
		return err
	}
	if b.NumComponents, err = r.ReadUint16(); err != nil {
		return err
	}
	b.BitsPerComponent, err = r.ReadUint8()
	return err
}

// Enumerated colorspace values per ISO/IEC 15444-1 Annex M.
const (
	CSBilevel1  = 0  // Bi-level (black and white)
	CSYCbCr1    = 1  // YCbCr(1) - ITU-R BT.709-5 based (sRGB primaries)
	CSYCbCr2    = 3  // YCbCr(2) - ITU-R BT.601-5 for 625-line systems
	CSYCbCr3    = 4  // YCbCr(3) - ITU-R BT.601-5 for 525-line systems
	CSPhotoYCC  = 9  // PhotoYCC (Kodak Photo CD)
	CSCMY       = 11 // CMY (Cyan, Magenta, Yellow)
	CSCMYK      = 12 // CMYK (Cyan, Magenta, Yellow, Key/Black)
	CSYCCK      = 13 // YCCK (PhotoYCC with Key/Black)
	CSCIELab    = 14 // CIELab (D50 illuminant)
	CSBilevel2  = 15 // Bi-level(2) - alternative bi-level encoding
	CSSRGB      = 16 // sRGB (IEC 61966-2-1)
	CSGray      = 17 // Grayscale
	CSsYCC      = 18 // sYCC (IEC 61966-2-1 Annex G)
	CSCIEJab    = 19 // CIEJab (CIECAM02-based)
	CSeSRGB     = 20 // e-sRGB (extended sRGB, IEC 61966-2-1 Amendment 1)
	CSROMMRGB   = 21 // ROMM-RGB (Reference Output Medium Metric, ISO 22028-2)
	CSYPbPr1125 = 22 // YPbPr for 1125/60 systems (SMPTE 274M)
	CSYPbPr1250 = 23 // YPbPr for 1250/50 systems (ITU-R BT.1361)
	CSeSYCC     = 24 // e-sYCC (extended sYCC gamut)
)

// ColorSpecBox holds the fixed-layout prefix of the "colr" box. The
// enumerated colorspace field is meaningful only when Method is 1; for the
// ICC methods those four bytes are profile data and the field is garbage,
// which callers must not interpret.
type ColorSpecBox struct {
	Method               uint8
	Precedence           uint8
	Approximation        uint8
	EnumeratedColorspace uint32
}

// Parse reads the color specification fields from the current box.
func (b *ColorSpecBox) Parse(r *Reader) error {
	var err error
	if b.Method, err = r.ReadUint8(); err != nil {
		return err
	}
	if b.Precedence, err = r.ReadUint8(); err != nil {
		return err
	}
	if b.Approximation, err = r.ReadUint8(); err != nil {
		return err
	}
	b.EnumeratedColorspace, err = r.ReadUint32()
	return err
}

// CaptureResolutionBox holds the "resc" box fields: a rational plus a
// base-10 exponent per axis, in dots per meter.
type CaptureResolutionBox struct {
	VNum   uint16
	VDenom uint16
	HNum   uint16
	HDenom uint16
	VExp   int8
	HExp   int8
}

// Parse reads the capture resolution fields from the current box.
func (b *CaptureResolutionBox) Parse(r *Reader) error {
	var err error
	if b.VNum, err = r.ReadUint16(); err != nil {
		return err
	}
	if b.VDenom, err = r.ReadUint16(); err != nil {
		return err
	}
	if b.HNum, err = r.ReadUint16(); err != nil {
		return err
	}
	if b.HDenom, err = r.ReadUint16(); err != nil {
		return err
	}
	ve, err := r.ReadUint8()
	if err != nil {
		return err
	}
	he, err := r.ReadUint8()
	if err != nil {
		return err
	}
	b.VExp = int8(ve)
	b.HExp = int8(he)
	return nil
}

// FileTypeBox holds the brand of the "ftyp" box. The minor version and
// compatibility list that follow are not consumed.
type FileTypeBox struct {
	Brand Type
}

// Parse reads the brand from the current box.
func (b *FileTypeBox) Parse(r *Reader) error {
	var err error
	b.Brand, err = r.ReadTag()
	return err
}

// Box represents a complete box held in memory, for writing.
type Box struct {
	Type     Type
	Length   uint64 // total box length including header
	Contents []byte
}

// NewBox returns a box of the given type with its length derived from the
// contents.
func NewBox(typ Type, contents []byte) *Box {
	return &Box{Type: typ, Length: uint64(8 + len(contents)), Contents: contents}
}

// Header returns the box header bytes, using the extended form when the
// length does not fit in 32 bits.
func (b *Box) Header() []byte {
	if b.Length <= math.MaxUint32 {
		header := make([]byte, 8)
		binary.BigEndian.PutUint32(header[0:4], uint32(b.Length))
		binary.BigEndian.PutUint32(header[4:8], uint32(b.Type))
		return header
	}
	header := make([]byte, 16)
	binary.BigEndian.PutUint32(header[0:4], 1)
	binary.BigEndian.PutUint32(header[4:8], uint32(b.Type))
	binary.BigEndian.PutUint64(header[8:16], b.Length)
	return header
}

// Bytes returns the complete box as bytes.
func (b *Box) Bytes() []byte {
	header := b.Header()
	result := make([]byte, len(header)+len(b.Contents))
	copy(result, header)
	copy(result[len(header):], b.Contents)
	return result
}

// Writer writes boxes to a stream.
type Writer struct {
	w io.Writer
}

// NewWriter creates a new box writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteBox writes a box to the stream.
func (w *Writer) WriteBox(b *Box) error {
	_, err := w.w.Write(b.Bytes())
	return err
}

// WriteSignature writes the 12-byte JP2 signature box.
func (w *Writer) WriteSignature() error {
	sig := []byte{
		0x00, 0x00, 0x00, 0x0C, // Length = 12
		0x6A, 0x50, 0x20, 0x20, // Type = "jP  "
		0x0D, 0x0A, 0x87, 0x0A, // Signature content
	}
	_, err := w.w.Write(sig)
	return err
}

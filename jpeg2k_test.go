package jpeg2k

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sysfce2/go-jpeg2k/internal/box"
)

// makeCodestream assembles a raw codestream: SOC and SIZ with the given
// geometry and component depths, any extra segments, then a start-of-tile
// marker.
func makeCodestream(width, height uint32, depths []byte, extra ...[]byte) []byte {
	buf := new(bytes.Buffer)
	buf.Write([]byte{0xFF, 0x4F}) // SOC
	buf.Write([]byte{0xFF, 0x51}) // SIZ
	binary.Write(buf, binary.BigEndian, uint16(38+3*len(depths)))
	binary.Write(buf, binary.BigEndian, uint16(0)) // rsiz
	binary.Write(buf, binary.BigEndian, width)
	binary.Write(buf, binary.BigEndian, height)
	binary.Write(buf, binary.BigEndian, uint32(0)) // image x offset
	binary.Write(buf, binary.BigEndian, uint32(0)) // image y offset
	binary.Write(buf, binary.BigEndian, width)     // tile width
	binary.Write(buf, binary.BigEndian, height)    // tile height
	binary.Write(buf, binary.BigEndian, uint32(0)) // tile x offset
	binary.Write(buf, binary.BigEndian, uint32(0)) // tile y offset
	binary.Write(buf, binary.BigEndian, uint16(len(depths)))
	for _, d := range depths {
		buf.Write([]byte{d, 1, 1})
	}
	for _, seg := range extra {
		buf.Write(seg)
	}
	buf.Write([]byte{0xFF, 0x90}) // SOT
	return buf.Bytes()
}

// comSegment assembles a comment segment with the given registration.
func comSegment(registration uint16, text string) []byte {
	buf := new(bytes.Buffer)
	buf.Write([]byte{0xFF, 0x64})
	binary.Write(buf, binary.BigEndian, uint16(4+len(text)))
	binary.Write(buf, binary.BigEndian, registration)
	buf.WriteString(text)
	return buf.Bytes()
}

// markerSegment assembles an arbitrary marker segment.
func markerSegment(marker uint16, payload []byte) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, marker)
	binary.Write(buf, binary.BigEndian, uint16(2+len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

// childBox returns a complete box with the given type code and contents.
func childBox(typ box.Type, contents []byte) []byte {
	return box.NewBox(typ, contents).Bytes()
}

// superBox wraps the given child boxes in one enclosing box.
func superBox(typ box.Type, children ...[]byte) []byte {
	return childBox(typ, bytes.Join(children, nil))
}

func ihdrBox(width, height uint32, components uint16, depth uint8) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, height)
	binary.Write(buf, binary.BigEndian, width)
	binary.Write(buf, binary.BigEndian, components)
	buf.Write([]byte{depth, 7, 0, 0}) // depth, wavelet compression, known colorspace, no IPR
	return childBox(box.TypeImageHeader, buf.Bytes())
}

func ftypBox(brand box.Type) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, uint32(brand))
	binary.Write(buf, binary.BigEndian, uint32(0)) // minor version
	binary.Write(buf, binary.BigEndian, uint32(brand))
	return childBox(box.TypeFileType, buf.Bytes())
}

func colrBox(method uint8, enumcs uint32) []byte {
	buf := new(bytes.Buffer)
	buf.Write([]byte{method, 0, 0})
	binary.Write(buf, binary.BigEndian, enumcs)
	return childBox(box.TypeColorSpec, buf.Bytes())
}

func pclrBox(entries [][]byte, depths ...byte) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, uint16(len(entries)))
	buf.WriteByte(byte(len(depths)))
	buf.Write(depths)
	for _, e := range entries {
		buf.Write(e)
	}
	return childBox(box.TypePalette, buf.Bytes())
}

func rescBox(vnum, vden, hnum, hden uint16, vexp, hexp byte) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, vnum)
	binary.Write(buf, binary.BigEndian, vden)
	binary.Write(buf, binary.BigEndian, hnum)
	binary.Write(buf, binary.BigEndian, hden)
	buf.Write([]byte{vexp, hexp})
	return childBox(box.TypeCaptureRes, buf.Bytes())
}

// makeJP2 assembles a container stream: the signature box followed by the
// given boxes.
func makeJP2(boxes ...[]byte) []byte {
	out := []byte(sigJP2)
	for _, b := range boxes {
		out = append(out, b...)
	}
	return out
}

// basicJP2 is a well-formed RGB container with an embedded codestream.
func basicJP2() []byte {
	return makeJP2(
		ftypBox(box.BrandJP2),
		superBox(box.TypeJP2Header,
			ihdrBox(512, 384, 3, 7),
			colrBox(1, box.CSSRGB),
		),
		childBox(box.TypeContCodestream, makeCodestream(512, 384, []byte{7, 7, 7})),
	)
}

// streamOnly hides the Seek method of the wrapped reader.
type streamOnly struct {
	io.Reader
}

// captureDecodeEngine records the decode request and returns a blank
// image of the requested size.
type captureDecodeEngine struct {
	tile TileDescriptor
	head []byte
}

func (e *captureDecodeEngine) Decode(src io.Reader, tile TileDescriptor) (image.Image, error) {
	e.tile = tile
	head := make([]byte, 4)
	if _, err := io.ReadFull(src, head); err != nil {
		return nil, err
	}
	e.head = head
	return image.NewRGBA(tile.Rect), nil
}

func installDecodeEngine(t *testing.T, e DecodeEngine) {
	t.Helper()
	prev := decodeEngine
	decodeEngine = e
	t.Cleanup(func() { decodeEngine = prev })
}

func TestFormat_String(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatJ2K, "J2K"},
		{FormatJP2, "JP2"},
		{FormatJPX, "JPX"},
		{Format(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %q, want %q", int(tt.format), got, tt.want)
		}
	}
}

func TestMode_String(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeUnknown, "Unknown"},
		{ModeGray, "L"},
		{ModeGray16, "I;16"},
		{ModeGrayAlpha, "LA"},
		{ModeRGB, "RGB"},
		{ModeRGBA, "RGBA"},
		{ModeCMYK, "CMYK"},
		{ModeIndexed, "P"},
		{ModeIndexedAlpha, "PA"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("Mode(%d).String() = %q, want %q", int(tt.mode), got, tt.want)
		}
	}
}

func TestProgressionOrder_String(t *testing.T) {
	tests := []struct {
		order ProgressionOrder
		want  string
	}{
		{LRCP, "LRCP"},
		{RLCP, "RLCP"},
		{RPCL, "RPCL"},
		{PCRL, "PCRL"},
		{CPRL, "CPRL"},
		{ProgressionOrder(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.order.String(); got != tt.want {
			t.Errorf("ProgressionOrder(%d).String() = %q, want %q", int(tt.order), got, tt.want)
		}
	}
}

func TestExtensions(t *testing.T) {
	ext := Extensions()
	want := []string{".jp2", ".j2k", ".jpc", ".jpf", ".jpx", ".j2c"}
	if len(ext) != len(want) {
		t.Fatalf("Extensions() returned %d entries, want %d", len(ext), len(want))
	}
	for i := range want {
		if ext[i] != want[i] {
			t.Errorf("Extensions()[%d] = %q, want %q", i, ext[i], want[i])
		}
	}

	// Callers must not be able to corrupt the shared list.
	ext[0] = ".zap"
	if got := Extensions()[0]; got != ".jp2" {
		t.Errorf("Extensions()[0] after mutation = %q, want %q", got, ".jp2")
	}
}

func TestOpen_RawCodestream(t *testing.T) {
	data := makeCodestream(100, 50, []byte{7, 7, 7}, comSegment(1, "lossless archival copy"))
	f, err := Open(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if f.Format != FormatJ2K {
		t.Errorf("Format = %v, want %v", f.Format, FormatJ2K)
	}
	if f.Width != 100 || f.Height != 50 {
		t.Errorf("size = %dx%d, want 100x50", f.Width, f.Height)
	}
	if f.Mode != ModeRGB {
		t.Errorf("Mode = %v, want %v", f.Mode, ModeRGB)
	}
	if f.MIMEType != MIMETypeJP2 {
		t.Errorf("MIMEType = %q, want %q", f.MIMEType, MIMETypeJP2)
	}
	if string(f.Comment) != "lossless archival copy" {
		t.Errorf("Comment = %q, want %q", f.Comment, "lossless archival copy")
	}
	if f.CommentRegistration != 1 {
		t.Errorf("CommentRegistration = %d, want 1", f.CommentRegistration)
	}

	tile := f.Tile()
	if tile.Codec != FormatJ2K {
		t.Errorf("Tile().Codec = %v, want %v", tile.Codec, FormatJ2K)
	}
	if tile.Rect != image.Rect(0, 0, 100, 50) {
		t.Errorf("Tile().Rect = %v, want %v", tile.Rect, image.Rect(0, 0, 100, 50))
	}
	if tile.FD != -1 {
		t.Errorf("Tile().FD = %d, want -1", tile.FD)
	}
	if tile.Length != int64(len(data)) {
		t.Errorf("Tile().Length = %d, want %d", tile.Length, len(data))
	}
}

func TestOpen_CodestreamModes(t *testing.T) {
	tests := []struct {
		name    string
		depths  []byte
		want    Mode
		wantErr error
	}{
		{name: "gray", depths: []byte{0x07}, want: ModeGray},
		{name: "gray_nine_bit_goes_deep", depths: []byte{0x08}, want: ModeGray16},
		{name: "gray_sixteen_bit", depths: []byte{0x0F}, want: ModeGray16},
		{name: "gray_signed_sixteen_bit", depths: []byte{0x8F}, want: ModeGray16},
		{name: "gray_alpha", depths: []byte{0x07, 0x07}, want: ModeGrayAlpha},
		{name: "rgb", depths: []byte{0x07, 0x07, 0x07}, want: ModeRGB},
		{name: "rgb_deep_components_stay_rgb", depths: []byte{0x0F, 0x0F, 0x0F}, want: ModeRGB},
		{name: "rgba", depths: []byte{0x07, 0x07, 0x07, 0x07}, want: ModeRGBA},
		{name: "five_components", depths: []byte{7, 7, 7, 7, 7}, wantErr: ErrUnknownColorLayout},
		{name: "zero_components", depths: nil, wantErr: ErrUnknownColorLayout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Open(bytes.NewReader(makeCodestream(64, 32, tt.depths)))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error: %v", err)
			}
			if f.Mode != tt.want {
				t.Errorf("Mode = %v, want %v", f.Mode, tt.want)
			}
		})
	}
}

func TestOpen_CodestreamNoComment(t *testing.T) {
	f, err := Open(bytes.NewReader(makeCodestream(64, 32, []byte{7})))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if f.Comment != nil {
		t.Errorf("Comment = %q, want none", f.Comment)
	}
}

func TestOpen_CodestreamCommentAfterOtherSegments(t *testing.T) {
	data := makeCodestream(64, 32, []byte{7},
		markerSegment(0xFF52, []byte{0, 0, 0, 1, 1}), // COD
		markerSegment(0xFF5C, []byte{0x40, 8}),       // QCD
		comSegment(0, "\x01\x02\x03"),
	)
	f, err := Open(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if !bytes.Equal(f.Comment, []byte{1, 2, 3}) {
		t.Errorf("Comment = %v, want [1 2 3]", f.Comment)
	}
	if f.CommentRegistration != 0 {
		t.Errorf("CommentRegistration = %d, want 0", f.CommentRegistration)
	}
}

func TestHeader_CommentText(t *testing.T) {
	tests := []struct {
		name         string
		registration uint16
		raw          string
		want         string
	}{
		{name: "latin_ascii", registration: 1, raw: "plain text", want: "plain text"},
		{name: "latin_high_bytes", registration: 1, raw: "10 \xa4", want: "10 €"},
		{name: "binary_passthrough", registration: 0, raw: "\xa4\x01", want: "\xa4\x01"},
		{name: "empty", registration: 1, raw: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := makeCodestream(8, 8, []byte{7}, comSegment(tt.registration, tt.raw))
			f, err := Open(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Open() error: %v", err)
			}
			if got := f.CommentText(); got != tt.want {
				t.Errorf("CommentText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpen_NotJPEG2000(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "single_byte", data: []byte{0xFF}},
		{name: "png_signature", data: []byte("\x89PNG\r\n\x1a\n")},
		{name: "plain_text", data: []byte("this is not an image at all")},
		{name: "corrupted_signature_box", data: append([]byte("\x00\x00\x00\x0cjP !\r\n\x87\n"), 0, 0)},
		{name: "soc_without_siz", data: []byte{0xFF, 0x4F, 0xFF, 0x90}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrNotJPEG2000) {
				t.Fatalf("Open() error = %v, want %v", err, ErrNotJPEG2000)
			}
			// Signature mismatch must stay distinct from structural failures.
			if errors.Is(err, ErrMalformedHeader) || errors.Is(err, ErrTruncated) {
				t.Errorf("Open() error %v also matches a structural failure", err)
			}
		})
	}
}

func TestOpen_TruncatedCodestream(t *testing.T) {
	data := makeCodestream(100, 50, []byte{7, 7, 7})
	for _, cut := range []int{6, 10, 20, 41} {
		if _, err := Open(bytes.NewReader(data[:cut])); !errors.Is(err, ErrTruncated) {
			t.Errorf("Open(%d bytes) error = %v, want %v", cut, err, ErrTruncated)
		}
	}
}

func TestOpen_CodestreamMissingComponentRecord(t *testing.T) {
	data := makeCodestream(100, 50, []byte{7})
	data = data[:4+38] // drop the component record
	binary.BigEndian.PutUint16(data[4:6], 38)
	data = append(data, 0xFF, 0x90)

	_, err := Open(bytes.NewReader(data))
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("Open() error = %v, want %v", err, ErrMalformedHeader)
	}
}

func TestOpen_UnseekableSource(t *testing.T) {
	f, err := Open(streamOnly{bytes.NewReader(basicJP2())})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if f.Width != 512 || f.Height != 384 {
		t.Errorf("size = %dx%d, want 512x384", f.Width, f.Height)
	}
	tile := f.Tile()
	if tile.FD != -1 || tile.Length != -1 {
		t.Errorf("Tile() FD/Length = %d/%d, want -1/-1", tile.FD, tile.Length)
	}
}

func TestOpen_FileSource(t *testing.T) {
	data := basicJP2()
	path := filepath.Join(t.TempDir(), "image.jp2")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	f, err := Open(src)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	tile := f.Tile()
	if tile.FD != int(src.Fd()) {
		t.Errorf("Tile().FD = %d, want %d", tile.FD, int(src.Fd()))
	}
	if tile.Length != int64(len(data)) {
		t.Errorf("Tile().Length = %d, want %d", tile.Length, len(data))
	}
}

func TestOpen_MidStreamSource(t *testing.T) {
	const junk = 32
	data := append(bytes.Repeat([]byte{0xAA}, junk), makeCodestream(96, 64, []byte{7, 7, 7})...)
	path := filepath.Join(t.TempDir(), "embedded.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	if _, err := src.Seek(junk, io.SeekStart); err != nil {
		t.Fatal(err)
	}

	f, err := Open(src)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if f.Width != 96 || f.Height != 64 {
		t.Errorf("size = %dx%d, want 96x64", f.Width, f.Height)
	}

	// Decoding must hand the engine the stream from the image start, not
	// the file start.
	engine := &captureDecodeEngine{}
	installDecodeEngine(t, engine)
	if _, err := f.Decode(); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if string(engine.head) != sigJ2K {
		t.Errorf("engine read % x at stream start, want % x", engine.head, sigJ2K)
	}
}

func TestFile_SetReduce(t *testing.T) {
	f, err := Open(bytes.NewReader(makeCodestream(100, 50, []byte{7, 7, 7})))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	w, h := f.Size()
	if w != 100 || h != 50 {
		t.Fatalf("Size() = %dx%d, want 100x50", w, h)
	}

	f.SetReduce(1)
	if w, h = f.Size(); w != 50 || h != 25 {
		t.Errorf("Size() at level 1 = %dx%d, want 50x25", w, h)
	}

	// Levels are absolute, not cumulative: going from 1 to 2 must give the
	// same size as going from 0 to 2.
	f.SetReduce(2)
	if w, h = f.Size(); w != 25 || h != 13 {
		t.Errorf("Size() at level 2 = %dx%d, want 25x13", w, h)
	}
	f.SetReduce(2)
	if w, h = f.Size(); w != 25 || h != 13 {
		t.Errorf("Size() after repeated level 2 = %dx%d, want 25x13", w, h)
	}

	f.SetReduce(0)
	if w, h = f.Size(); w != 100 || h != 50 {
		t.Errorf("Size() restored at level 0 = %dx%d, want 100x50", w, h)
	}

	f.SetReduce(-3)
	if f.Reduce() != 0 {
		t.Errorf("Reduce() after negative level = %d, want 0", f.Reduce())
	}
	if w, h = f.Size(); w != 100 || h != 50 {
		t.Errorf("Size() after negative level = %dx%d, want 100x50", w, h)
	}
}

func TestFile_SetReduceReplacesDescriptor(t *testing.T) {
	f, err := Open(bytes.NewReader(makeCodestream(100, 50, []byte{7})))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	before := f.Tile()
	f.SetReduce(1)
	after := f.Tile()

	if before.Rect != image.Rect(0, 0, 100, 50) {
		t.Errorf("earlier descriptor changed: Rect = %v", before.Rect)
	}
	if before.Reduce != 0 {
		t.Errorf("earlier descriptor changed: Reduce = %d", before.Reduce)
	}
	if after.Rect != image.Rect(0, 0, 50, 25) || after.Reduce != 1 {
		t.Errorf("new descriptor = %+v, want 50x25 at level 1", after)
	}
}

func TestFile_SetLayers(t *testing.T) {
	f, err := Open(bytes.NewReader(makeCodestream(100, 50, []byte{7})))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	f.SetLayers(3)
	if f.Layers() != 3 {
		t.Errorf("Layers() = %d, want 3", f.Layers())
	}
	if got := f.Tile().Layers; got != 3 {
		t.Errorf("Tile().Layers = %d, want 3", got)
	}
	if w, h := f.Size(); w != 100 || h != 50 {
		t.Errorf("Size() = %dx%d, want unchanged 100x50", w, h)
	}
}

func TestFile_Bounds(t *testing.T) {
	f, err := Open(bytes.NewReader(makeCodestream(100, 50, []byte{7})))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if got := f.Bounds(); got != image.Rect(0, 0, 100, 50) {
		t.Errorf("Bounds() = %v, want %v", got, image.Rect(0, 0, 100, 50))
	}
}

func TestReducedSize(t *testing.T) {
	tests := []struct {
		d, r, want int
	}{
		{100, 0, 100},
		{100, 1, 50},
		{101, 1, 51},
		{50, 2, 13},
		{100, 2, 25},
		{1, 1, 1},
		{1, 2, 0},
		{0, 5, 0},
		{1, 62, 0},
		{1 << 20, 63, 0},
		{1 << 20, 200, 0},
	}
	for _, tt := range tests {
		if got := reducedSize(tt.d, tt.r); got != tt.want {
			t.Errorf("reducedSize(%d, %d) = %d, want %d", tt.d, tt.r, got, tt.want)
		}
	}
}

func TestFile_DecodeNoEngine(t *testing.T) {
	f, err := Open(bytes.NewReader(makeCodestream(8, 8, []byte{7})))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if _, err := f.Decode(); !errors.Is(err, ErrNoEngine) {
		t.Fatalf("Decode() error = %v, want %v", err, ErrNoEngine)
	}
}

func TestFile_DecodeUnseekable(t *testing.T) {
	installDecodeEngine(t, &captureDecodeEngine{})
	f, err := Open(streamOnly{bytes.NewReader(makeCodestream(8, 8, []byte{7}))})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if _, err := f.Decode(); err == nil {
		t.Fatal("Decode() on an unseekable source succeeded, want error")
	}
}

func TestFile_Decode(t *testing.T) {
	engine := &captureDecodeEngine{}
	installDecodeEngine(t, engine)

	f, err := Open(bytes.NewReader(makeCodestream(100, 50, []byte{7, 7, 7})))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	f.SetReduce(1)
	f.SetLayers(2)

	img, err := f.Decode()
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 50, 25) {
		t.Errorf("image bounds = %v, want %v", img.Bounds(), image.Rect(0, 0, 50, 25))
	}
	if engine.tile != f.Tile() {
		t.Errorf("engine received tile %+v, want %+v", engine.tile, f.Tile())
	}
	if string(engine.head) != sigJ2K {
		t.Errorf("engine read % x at stream start, want % x", engine.head, sigJ2K)
	}
}

func TestDecode(t *testing.T) {
	engine := &captureDecodeEngine{}
	installDecodeEngine(t, engine)

	img, err := Decode(bytes.NewReader(makeCodestream(64, 32, []byte{7, 7, 7})))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 64, 32) {
		t.Errorf("image bounds = %v, want %v", img.Bounds(), image.Rect(0, 0, 64, 32))
	}
	if engine.tile.Codec != FormatJ2K {
		t.Errorf("tile codec = %v, want %v", engine.tile.Codec, FormatJ2K)
	}
}

func TestDecode_NoEngine(t *testing.T) {
	installDecodeEngine(t, nil)
	_, err := Decode(bytes.NewReader(makeCodestream(8, 8, []byte{7})))
	if !errors.Is(err, ErrNoEngine) {
		t.Fatalf("Decode() error = %v, want %v", err, ErrNoEngine)
	}
}

func TestDecodeWithOptions(t *testing.T) {
	engine := &captureDecodeEngine{}
	installDecodeEngine(t, engine)

	img, err := DecodeWithOptions(
		bytes.NewReader(makeCodestream(100, 50, []byte{7, 7, 7})),
		&DecodeOptions{Reduce: 1, Layers: 4},
	)
	if err != nil {
		t.Fatalf("DecodeWithOptions() error: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 50, 25) {
		t.Errorf("image bounds = %v, want %v", img.Bounds(), image.Rect(0, 0, 50, 25))
	}
	if engine.tile.Reduce != 1 || engine.tile.Layers != 4 {
		t.Errorf("tile reduce/layers = %d/%d, want 1/4", engine.tile.Reduce, engine.tile.Layers)
	}
}

func TestDecodeHeader(t *testing.T) {
	h, err := DecodeHeader(bytes.NewReader(basicJP2()))
	if err != nil {
		t.Fatalf("DecodeHeader() error: %v", err)
	}
	if h.Format != FormatJP2 || h.Width != 512 || h.Height != 384 || h.Mode != ModeRGB {
		t.Errorf("header = %+v, want 512x384 RGB JP2", h)
	}
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(bytes.NewReader(makeCodestream(100, 50, []byte{7})))
	if err != nil {
		t.Fatalf("DecodeConfig() error: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Errorf("config size = %dx%d, want 100x50", cfg.Width, cfg.Height)
	}
	if cfg.ColorModel != color.GrayModel {
		t.Errorf("ColorModel = %v, want color.GrayModel", cfg.ColorModel)
	}
}

func TestImageRegistry(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "container", data: basicJP2(), want: "jp2"},
		{name: "raw_codestream", data: makeCodestream(64, 32, []byte{7, 7, 7}), want: "j2k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, name, err := image.DecodeConfig(bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("image.DecodeConfig() error: %v", err)
			}
			if name != tt.want {
				t.Errorf("format name = %q, want %q", name, tt.want)
			}
			if cfg.Width == 0 || cfg.Height == 0 {
				t.Errorf("config size = %dx%d, want non-zero", cfg.Width, cfg.Height)
			}
		})
	}
}

func BenchmarkOpen_Codestream(b *testing.B) {
	data := makeCodestream(4096, 4096, []byte{7, 7, 7}, comSegment(1, "benchmark subject"))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Open(bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkOpen_Container(b *testing.B) {
	data := basicJP2()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Open(bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

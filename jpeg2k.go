// Package jpeg2k reads and writes JPEG 2000 images.
//
// JPEG 2000 (ISO/IEC 15444) images come in two forms: a raw codestream
// (J2K) and a box-structured container wrapping one (JP2, or JPX for the
// Part 2 extensions). The package parses both header forms natively,
// exposing image geometry, color mode, palette, capture resolution and
// comment metadata without touching pixel data. Pixel decoding and
// encoding are delegated to a pluggable codec engine; see
// RegisterDecodeEngine and RegisterEncodeEngine.
//
// Basic usage for reading metadata:
//
//	file, _ := os.Open("image.jp2")
//	f, err := jpeg2k.Open(file)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	w, h := f.Size()
package jpeg2k

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
)

// Stream signatures used to detect the sub-format.
const (
	// sigJ2K is the first four bytes of a raw codestream: the SOC marker
	// followed by the SIZ marker.
	sigJ2K = "\xff\x4f\xff\x51"
	// sigJP2 is the complete 12-byte signature box that opens a container
	// file.
	sigJP2 = "\x00\x00\x00\x0cjP  \r\n\x87\n"
)

// MIME types served for the format family.
const (
	MIMETypeJP2 = "image/jp2"
	MIMETypeJPX = "image/jpx"
)

// Format constants for JPEG 2000 file formats.
const (
	// FormatJ2K is the raw codestream format (no file wrapper).
	FormatJ2K Format = iota
	// FormatJP2 is the standard JP2 file format with metadata boxes.
	FormatJP2
	// FormatJPX is the extended JP2 format (Part 2).
	FormatJPX
)

// Format represents a JPEG 2000 file format.
type Format int

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatJ2K:
		return "J2K"
	case FormatJP2:
		return "JP2"
	case FormatJPX:
		return "JPX"
	default:
		return "Unknown"
	}
}

// Mode constants for the color interpretation of decoded pixels.
const (
	// ModeUnknown is the zero value; no mode has been determined.
	ModeUnknown Mode = iota
	// ModeGray is single-channel grayscale, 8 bits per sample.
	ModeGray
	// ModeGray16 is single-channel grayscale deeper than 8 bits.
	ModeGray16
	// ModeGrayAlpha is grayscale with an alpha channel.
	ModeGrayAlpha
	// ModeRGB is three-channel color.
	ModeRGB
	// ModeRGBA is three-channel color with an alpha channel.
	ModeRGBA
	// ModeCMYK is four-channel ink color.
	ModeCMYK
	// ModeIndexed is palette-indexed color.
	ModeIndexed
	// ModeIndexedAlpha is palette-indexed color with an alpha channel.
	ModeIndexedAlpha
)

// Mode represents the color interpretation of decoded pixels.
type Mode int

// String returns the conventional short name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeGray:
		return "L"
	case ModeGray16:
		return "I;16"
	case ModeGrayAlpha:
		return "LA"
	case ModeRGB:
		return "RGB"
	case ModeRGBA:
		return "RGBA"
	case ModeCMYK:
		return "CMYK"
	case ModeIndexed:
		return "P"
	case ModeIndexedAlpha:
		return "PA"
	default:
		return "Unknown"
	}
}

// modeForComponents maps a component count to a color mode. deep selects
// the 16-bit grayscale mode and is only consulted for a single component.
func modeForComponents(nc int, deep bool) (Mode, error) {
	switch nc {
	case 1:
		if deep {
			return ModeGray16, nil
		}
		return ModeGray, nil
	case 2:
		return ModeGrayAlpha, nil
	case 3:
		return ModeRGB, nil
	case 4:
		return ModeRGBA, nil
	default:
		return ModeUnknown, fmt.Errorf("%w: %d components", ErrUnknownColorLayout, nc)
	}
}

// colorModel maps a mode to the closest image/color model. Indexed modes
// use the palette when one is available.
func (m Mode) colorModel(p *Palette) color.Model {
	switch m {
	case ModeGray:
		return color.GrayModel
	case ModeGray16:
		return color.Gray16Model
	case ModeGrayAlpha, ModeRGBA:
		return color.NRGBAModel
	case ModeCMYK:
		return color.CMYKModel
	case ModeIndexed, ModeIndexedAlpha:
		if p != nil {
			return p.ColorModel()
		}
		return color.RGBAModel
	default:
		return color.RGBAModel
	}
}

// ProgressionOrder defines the order in which packets are encoded/decoded.
type ProgressionOrder int

const (
	// LRCP is Layer-Resolution-Component-Position order.
	LRCP ProgressionOrder = iota
	// RLCP is Resolution-Layer-Component-Position order.
	RLCP
	// RPCL is Resolution-Position-Component-Layer order.
	RPCL
	// PCRL is Position-Component-Resolution-Layer order.
	PCRL
	// CPRL is Component-Position-Resolution-Layer order.
	CPRL
)

// String returns the string representation of the progression order.
func (p ProgressionOrder) String() string {
	switch p {
	case LRCP:
		return "LRCP"
	case RLCP:
		return "RLCP"
	case RPCL:
		return "RPCL"
	case PCRL:
		return "PCRL"
	case CPRL:
		return "CPRL"
	default:
		return "Unknown"
	}
}

// Header contains image metadata extracted from the JPEG 2000 headers.
type Header struct {
	// Format is the detected file format.
	Format Format

	// Width is the image width in pixels at full resolution.
	Width int

	// Height is the image height in pixels at full resolution.
	Height int

	// Mode is the color interpretation of the decoded pixels.
	Mode Mode

	// MIMEType is "image/jpx" for extended-profile containers and
	// "image/jp2" otherwise.
	MIMEType string

	// DPI is the capture resolution in dots per inch, when the container
	// declares a usable one.
	DPI *DPI

	// Palette is the color table, when Mode is an indexed mode.
	Palette *Palette

	// Comment is the payload of the first comment segment found in the
	// codestream, if any.
	Comment []byte

	// CommentRegistration is the registration value of the comment
	// segment: 0 for binary data, 1 for Latin text.
	CommentRegistration uint16
}

// DecodeEngine decodes JPEG 2000 pixel data. src is positioned at the
// start of the stream; tile carries the parsed decode parameters.
type DecodeEngine interface {
	Decode(src io.Reader, tile TileDescriptor) (image.Image, error)
}

// EncodeEngine produces a JPEG 2000 stream from an image.
type EncodeEngine interface {
	Encode(dst io.Writer, m image.Image, params *EncodeParameters) error
}

var (
	decodeEngine DecodeEngine
	encodeEngine EncodeEngine
)

// RegisterDecodeEngine installs the codec used by Decode. It is typically
// called from an init function in the engine's package.
func RegisterDecodeEngine(e DecodeEngine) { decodeEngine = e }

// RegisterEncodeEngine installs the codec used by Encode. It is typically
// called from an init function in the engine's package.
func RegisterEncodeEngine(e EncodeEngine) { encodeEngine = e }

// DecodeHeader reads image metadata from r without decoding pixel data.
func DecodeHeader(r io.Reader) (*Header, error) {
	f, err := Open(r)
	if err != nil {
		return nil, err
	}
	return &f.Header, nil
}

// DecodeConfig returns the color model and dimensions of a JPEG 2000
// image without decoding the entire image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: h.Mode.colorModel(h.Palette),
		Width:      h.Width,
		Height:     h.Height,
	}, nil
}

// DecodeOptions adjusts pixel decoding.
type DecodeOptions struct {
	// Reduce selects a power-of-two downsampled decode target.
	// 0 means full resolution, 1 means half resolution, etc.
	Reduce int

	// Layers specifies the number of quality layers to decode.
	// 0 means all layers.
	Layers int
}

// Decode reads a JPEG 2000 image from r and returns it as an image.Image.
// The headers are parsed natively; pixel decoding is delegated to the
// registered engine.
func Decode(r io.Reader) (image.Image, error) {
	return DecodeWithOptions(r, nil)
}

// DecodeWithOptions decodes a JPEG 2000 image with the specified options.
func DecodeWithOptions(r io.Reader, o *DecodeOptions) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, err := Open(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if o != nil {
		if o.Reduce != 0 {
			f.SetReduce(o.Reduce)
		}
		if o.Layers != 0 {
			f.SetLayers(o.Layers)
		}
	}
	if decodeEngine == nil {
		return nil, ErrNoEngine
	}
	return decodeEngine.Decode(bytes.NewReader(data), f.Tile())
}

// Extensions returns the file name extensions conventionally used by the
// format family.
func Extensions() []string {
	return []string{".jp2", ".j2k", ".jpc", ".jpf", ".jpx", ".j2c"}
}

// init registers the JPEG 2000 formats with the image package.
func init() {
	image.RegisterFormat("jp2", sigJP2, Decode, DecodeConfig)
	image.RegisterFormat("j2k", sigJ2K, Decode, DecodeConfig)
}

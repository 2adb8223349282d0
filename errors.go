package jpeg2k

import (
	"errors"

	"github.com/sysfce2/go-jpeg2k/internal/box"
)

// Errors reported while recognizing and parsing image headers. Every
// parse failure wraps exactly one of these, so callers can classify a
// failure with errors.Is without matching message text.
var (
	// ErrNotJPEG2000 reports that the leading bytes match neither the raw
	// codestream signature nor the container signature. Callers probing a
	// stream against several formats should move on to the next format.
	ErrNotJPEG2000 = errors.New("jpeg2k: not a JPEG 2000 file")

	// ErrTruncated reports that the source ended before a declared box,
	// segment or field could be read in full.
	ErrTruncated = box.ErrTruncated

	// ErrMalformedHeader reports a structurally invalid header: a box
	// length smaller than its own header, a read crossing a box or stream
	// bound, or a required box that never appears.
	ErrMalformedHeader = box.ErrMalformedHeader

	// ErrUnknownColorLayout reports a component count outside the
	// supported range of 1 to 4.
	ErrUnknownColorLayout = errors.New("jpeg2k: unable to determine color mode")

	// ErrPaletteOverflow reports a palette with more distinct colors than
	// an 8-bit index can address.
	ErrPaletteOverflow = errors.New("jpeg2k: palette holds more than 256 distinct colors")

	// ErrInvalidParameter reports an encode option whose value is not of
	// an accepted type or shape.
	ErrInvalidParameter = errors.New("jpeg2k: invalid encoder parameter")

	// ErrNoEngine reports that pixel decoding or encoding was requested
	// but no codec engine is registered.
	ErrNoEngine = errors.New("jpeg2k: no codec engine registered")

	// ErrNoEXIF reports that the file carries no EXIF metadata box.
	ErrNoEXIF = errors.New("jpeg2k: no EXIF metadata")
)

package jpeg2k

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sysfce2/go-jpeg2k/internal/box"
)

// parseContainer walks the top-level boxes of a container stream,
// positioned just past the 12-byte signature box, until the JP2 header
// superbox has been parsed. It fills in geometry, color mode, MIME type,
// capture resolution and palette.
func parseContainer(r *box.Reader) (*Header, error) {
	h := &Header{Format: FormatJP2, MIMEType: MIMETypeJP2}

	var header *box.Reader
walk:
	for r.HasNextBox() {
		typ, err := r.NextBoxType()
		if err != nil {
			return nil, err
		}
		switch typ {
		case box.TypeJP2Header:
			if header, err = r.EnterSubBoxes(); err != nil {
				return nil, err
			}
			break walk
		case box.TypeFileType:
			var ftyp box.FileTypeBox
			if err := ftyp.Parse(r); err != nil {
				return nil, err
			}
			if ftyp.Brand == box.BrandJPX {
				h.Format = FormatJPX
				h.MIMEType = MIMETypeJPX
			}
		}
	}
	if header == nil {
		return nil, fmt.Errorf("%w: missing JP2 header box", ErrMalformedHeader)
	}

	if err := parseHeaderBoxes(header, h); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"width":  h.Width,
		"height": h.Height,
		"mode":   h.Mode,
	}).Debug("parsed container header")
	return h, nil
}

// parseHeaderBoxes walks the sub-boxes of the JP2 header superbox. The
// image header box fixes size and a provisional mode from the component
// count; a color-specification box can upgrade four components to CMYK;
// a palette box can turn a grayscale mode into an indexed one; the first
// resolution superbox with a capture-resolution sub-box sets the DPI.
func parseHeaderBoxes(r *box.Reader, h *Header) error {
	seen := false
	nc := 0
	for r.HasNextBox() {
		typ, err := r.NextBoxType()
		if err != nil {
			return err
		}
		switch {
		case typ == box.TypeImageHeader:
			var ihdr box.ImageHeaderBox
			if err := ihdr.Parse(r); err != nil {
				return err
			}
			h.Width = int(ihdr.Width)
			h.Height = int(ihdr.Height)
			nc = int(ihdr.NumComponents)
			h.Mode, err = modeForComponents(nc, ihdr.BitsPerComponent&0x7F > 8)
			if err != nil {
				return err
			}
			seen = true

		case typ == box.TypeColorSpec && nc == 4:
			var colr box.ColorSpecBox
			if err := colr.Parse(r); err != nil {
				return err
			}
			if colr.Method == 1 && colr.EnumeratedColorspace == box.CSCMYK {
				h.Mode = ModeCMYK
			}

		case typ == box.TypePalette && (h.Mode == ModeGray || h.Mode == ModeGrayAlpha):
			pal, err := parsePalette(r)
			if err != nil {
				return err
			}
			if pal != nil {
				h.Palette = pal
				if h.Mode == ModeGray {
					h.Mode = ModeIndexed
				} else {
					h.Mode = ModeIndexedAlpha
				}
			}

		case typ == box.TypeResolution:
			sub, err := r.EnterSubBoxes()
			if err != nil {
				return err
			}
			dpi, err := parseResolution(sub)
			if err != nil {
				return err
			}
			if dpi != nil {
				h.DPI = dpi
			}
		}
	}
	if !seen {
		return fmt.Errorf("%w: missing image header box", ErrMalformedHeader)
	}
	return nil
}

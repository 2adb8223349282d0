package jpeg2k

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/sysfce2/go-jpeg2k/internal/box"
)

// DPI is a print resolution in dots per inch.
type DPI struct {
	// X is the horizontal resolution.
	X float64

	// Y is the vertical resolution.
	Y float64
}

// resolutionToDPI converts one axis of the capture-resolution encoding,
// a rational in grid points per meter scaled by a base-10 exponent, to
// dots per inch. It reports false when the denominator is zero and the
// axis therefore carries no usable value.
func resolutionToDPI(num, denom uint16, exp int8) (float64, bool) {
	if denom == 0 {
		return 0, false
	}
	return 254 * float64(num) * math.Pow(10, float64(exp)) / (10000 * float64(denom)), true
}

// parseResolution walks the sub-boxes of a resolution superbox looking
// for a capture-resolution box. The first one found decides: its values
// are converted and no later sub-box of this superbox is consulted,
// whether or not the conversion produced a usable pair.
func parseResolution(r *box.Reader) (*DPI, error) {
	for r.HasNextBox() {
		typ, err := r.NextBoxType()
		if err != nil {
			return nil, err
		}
		if typ != box.TypeCaptureRes {
			continue
		}
		var resc box.CaptureResolutionBox
		if err := resc.Parse(r); err != nil {
			return nil, err
		}
		hres, hok := resolutionToDPI(resc.HNum, resc.HDenom, resc.HExp)
		vres, vok := resolutionToDPI(resc.VNum, resc.VDenom, resc.VExp)
		if hok && vok {
			return &DPI{X: hres, Y: vres}, nil
		}
		logrus.Warn("capture resolution box has a zero denominator, ignoring")
		return nil, nil
	}
	return nil, nil
}

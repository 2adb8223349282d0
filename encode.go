package jpeg2k

import (
	"fmt"
	"image"
	"io"
	"os"
	"strings"
)

// Quality modes accepted by EncodeOptions.
const (
	// QualityModeRates interprets quality layers as compression ratios.
	QualityModeRates = "rates"
	// QualityModeDB interprets quality layers as signal-to-noise targets
	// in decibels.
	QualityModeDB = "dB"
)

// Cinema modes accepted by EncodeOptions.
const (
	CinemaModeNone = "no"
	CinemaMode2K24 = "cinema2k-24"
	CinemaMode2K48 = "cinema2k-48"
	CinemaMode4K24 = "cinema4k-24"
)

// EncodeOptions holds the encoding options. The zero value selects the
// container format with default tuning.
type EncodeOptions struct {
	// Name is the intended output file name. A ".j2k" suffix selects the
	// raw codestream format; any other name selects the container.
	Name string

	// NoJP2 forces the raw codestream format regardless of Name.
	NoJP2 bool

	// Offset is the image origin on the reference grid.
	Offset image.Point

	// TileOffset is the tile grid origin.
	TileOffset image.Point

	// TileSize is the tile extent. Zero means a single tile covering the
	// whole image.
	TileSize image.Point

	// QualityMode selects how QualityLayers is interpreted. Empty means
	// QualityModeRates.
	QualityMode string

	// QualityLayers is a sequence of per-layer numeric targets. Accepted
	// shapes are nil, []int, []float32, []float64, or a []any holding
	// only those element types. Anything else fails with
	// ErrInvalidParameter.
	QualityLayers any

	// NumResolutions is the resolution level count. 0 leaves the choice
	// to the engine.
	NumResolutions int

	// CodeblockSize is the code block extent in pixels.
	CodeblockSize image.Point

	// PrecinctSize is the precinct extent in pixels.
	PrecinctSize image.Point

	// Irreversible selects the lossy 9-7 wavelet transform instead of
	// the reversible 5-3 transform.
	Irreversible bool

	// Progression specifies the packet ordering.
	Progression ProgressionOrder

	// CinemaMode selects digital-cinema compliance. Empty means
	// CinemaModeNone.
	CinemaMode string

	// MCT enables the multiple component transform when 1.
	MCT int

	// Signed declares the component samples signed.
	Signed bool

	// Comment is embedded as a comment segment when non-empty.
	Comment string

	// PLT requests packet-length markers in tile-part headers.
	PLT bool
}

// EncodeParameters is the validated, normalized parameter record handed
// to the encode engine.
type EncodeParameters struct {
	Format         Format
	Offset         image.Point
	TileOffset     image.Point
	TileSize       image.Point
	QualityMode    string
	QualityLayers  []float64
	NumResolutions int
	CodeblockSize  image.Point
	PrecinctSize   image.Point
	Irreversible   bool
	Progression    ProgressionOrder
	CinemaMode     string
	MCT            int
	Signed         bool
	FD             int
	Comment        []byte
	PLT            bool
}

// formatForName resolves the sub-format from an output name: a ".j2k"
// suffix selects the raw codestream, anything else the container. The
// comparison is exact, so ".J2K" and ".jpc" both select the container.
func formatForName(name string) Format {
	if strings.HasSuffix(name, ".j2k") {
		return FormatJ2K
	}
	return FormatJP2
}

// normalizeQualityLayers coerces the accepted quality-layer shapes to a
// float slice.
func normalizeQualityLayers(v any) ([]float64, error) {
	switch q := v.(type) {
	case nil:
		return nil, nil
	case []float64:
		out := make([]float64, len(q))
		copy(out, q)
		return out, nil
	case []float32:
		out := make([]float64, len(q))
		for i, x := range q {
			out[i] = float64(x)
		}
		return out, nil
	case []int:
		out := make([]float64, len(q))
		for i, x := range q {
			out[i] = float64(x)
		}
		return out, nil
	case []any:
		out := make([]float64, len(q))
		for i, x := range q {
			switch n := x.(type) {
			case int:
				out[i] = float64(n)
			case int64:
				out[i] = float64(n)
			case float32:
				out[i] = float64(n)
			case float64:
				out[i] = n
			default:
				return nil, fmt.Errorf("%w: quality layers must be a sequence of numbers", ErrInvalidParameter)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: quality layers must be a sequence of numbers", ErrInvalidParameter)
	}
}

// encodeParameters validates o and assembles the engine parameter
// record. Nothing is written before validation succeeds.
func encodeParameters(w io.Writer, o *EncodeOptions) (*EncodeParameters, error) {
	if o == nil {
		o = &EncodeOptions{}
	}
	layers, err := normalizeQualityLayers(o.QualityLayers)
	if err != nil {
		return nil, err
	}

	format := formatForName(o.Name)
	if o.NoJP2 {
		format = FormatJ2K
	}
	qualityMode := o.QualityMode
	if qualityMode == "" {
		qualityMode = QualityModeRates
	}
	cinemaMode := o.CinemaMode
	if cinemaMode == "" {
		cinemaMode = CinemaModeNone
	}
	fd := -1
	if f, ok := w.(*os.File); ok {
		fd = int(f.Fd())
	}

	p := &EncodeParameters{
		Format:         format,
		Offset:         o.Offset,
		TileOffset:     o.TileOffset,
		TileSize:       o.TileSize,
		QualityMode:    qualityMode,
		QualityLayers:  layers,
		NumResolutions: o.NumResolutions,
		CodeblockSize:  o.CodeblockSize,
		PrecinctSize:   o.PrecinctSize,
		Irreversible:   o.Irreversible,
		Progression:    o.Progression,
		CinemaMode:     cinemaMode,
		MCT:            o.MCT,
		Signed:         o.Signed,
		FD:             fd,
		PLT:            o.PLT,
	}
	if o.Comment != "" {
		p.Comment = []byte(o.Comment)
	}
	return p, nil
}

// Encode writes the image m to w in JPEG 2000 format with the given
// options. Parameter validation happens before the registered engine is
// invoked, so invalid options are reported even when no engine is
// installed.
func Encode(w io.Writer, m image.Image, o *EncodeOptions) error {
	params, err := encodeParameters(w, o)
	if err != nil {
		return err
	}
	if encodeEngine == nil {
		return ErrNoEngine
	}
	return encodeEngine.Encode(w, m, params)
}

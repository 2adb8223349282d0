package jpeg2k

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/sysfce2/go-jpeg2k/internal/box"
)

// ExifBoxID identifies the UUID box that carries EXIF metadata, per the
// JPEG interchange convention: the 16 bytes spell "JpgTiffExif->JP2".
var ExifBoxID = uuid.UUID{'J', 'p', 'g', 'T', 'i', 'f', 'f', 'E', 'x', 'i', 'f', '-', '>', 'J', 'P', '2'}

// exifPrefix optionally precedes the TIFF payload inside the EXIF box.
var exifPrefix = []byte("Exif\x00\x00")

// UUIDBox scans the container's top-level boxes and returns the contents
// of the first uuid box whose 16-byte identity matches id, or nil when the
// file carries no such box. Raw codestreams have no boxes and always
// return nil. The scan requires a seekable source.
func (f *File) UUIDBox(id uuid.UUID) ([]byte, error) {
	if f.codec != FormatJP2 {
		return nil, nil
	}
	s, ok := f.src.(io.ReadSeeker)
	if !ok {
		return nil, fmt.Errorf("jpeg2k: uuid box scan requires a seekable source")
	}

	start := f.offset + int64(len(sigJP2))
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := s.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}

	r := box.NewReader(s, box.FiniteBound(end-start))
	for r.HasNextBox() {
		typ, err := r.NextBoxType()
		if err != nil {
			return nil, err
		}
		if typ != box.TypeUUID || r.Remaining() < int64(len(id)) {
			continue
		}
		key, err := r.ReadBytes(len(id))
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(key, id[:]) {
			continue
		}
		return r.ReadBytes(int(r.Remaining()))
	}
	return nil, nil
}

// Exif decodes the TIFF payload of the EXIF UUID box. It fails with
// ErrNoEXIF when the file carries no such box.
func (f *File) Exif() (*exif.Exif, error) {
	payload, err := f.UUIDBox(ExifBoxID)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, ErrNoEXIF
	}
	payload = bytes.TrimPrefix(payload, exifPrefix)
	x, err := exif.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("jpeg2k: decoding EXIF: %w", err)
	}
	return x, nil
}

package jpeg2k

import (
	"golang.org/x/text/encoding/charmap"

	"github.com/sysfce2/go-jpeg2k/internal/codestream"
)

// CommentText returns the comment payload as text. Comments registered
// as Latin values are decoded through the ISO 8859-15 charmap; binary
// comments and undecodable bytes are returned as a raw byte string.
func (h *Header) CommentText() string {
	if len(h.Comment) == 0 {
		return ""
	}
	if h.CommentRegistration == codestream.CommentLatin {
		if b, err := charmap.ISO8859_15.NewDecoder().Bytes(h.Comment); err == nil {
			return string(b)
		}
	}
	return string(h.Comment)
}

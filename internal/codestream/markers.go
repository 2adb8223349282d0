// Package codestream parses the header of a raw JPEG 2000 codestream: the
// size marker segment that carries image geometry and component layout, and
// the marker segments that may follow it, scanned for an optional comment.
package codestream

// Marker codes for JPEG 2000 codestreams.
// These are defined in ISO/IEC 15444-1 Annex A.
const (
	// Delimiting markers and marker segments
	SOC Marker = 0xFF4F // Start of codestream
	SOT Marker = 0xFF90 // Start of tile-part
	SOD Marker = 0xFF93 // Start of data
	EOC Marker = 0xFFD9 // End of codestream

	// Fixed information marker segments
	SIZ Marker = 0xFF51 // Image and tile size

	// Functional marker segments
	COD Marker = 0xFF52 // Coding style default
	COC Marker = 0xFF53 // Coding style component
	RGN Marker = 0xFF5E // Region-of-interest
	QCD Marker = 0xFF5C // Quantization default
	QCC Marker = 0xFF5D // Quantization component
	POC Marker = 0xFF5F // Progression order change

	// Pointer marker segments
	TLM Marker = 0xFF55 // Tile-part lengths
	PLM Marker = 0xFF57 // Packet length, main header
	PLT Marker = 0xFF58 // Packet length, tile-part header
	PPM Marker = 0xFF60 // Packed packet headers, main header
	PPT Marker = 0xFF61 // Packed packet headers, tile-part header

	// In bit stream markers and marker segments
	SOP Marker = 0xFF91 // Start of packet
	EPH Marker = 0xFF92 // End of packet header

	// Informational marker segments
	CRG Marker = 0xFF63 // Component registration
	COM Marker = 0xFF64 // Comment

	// Part 2 extensions
	CAP Marker = 0xFF50 // Extended capabilities
)

// Marker represents a JPEG 2000 marker code.
type Marker uint16

// String returns the string representation of a marker.
func (m Marker) String() string {
	switch m {
	case SOC:
		return "SOC"
	case SOT:
		return "SOT"
	case SOD:
		return "SOD"
	case EOC:
		return "EOC"
	case SIZ:
		return "SIZ"
	case COD:
		return "COD"
	case COC:
		return "COC"
	case RGN:
		return "RGN"
	case QCD:
		return "QCD"
	case QCC:
		return "QCC"
	case POC:
		return "POC"
	case TLM:
		return "TLM"
	case PLM:
		return "PLM"
	case PLT:
		return "PLT"
	case PPM:
		return "PPM"
	case PPT:
		return "PPT"
	case SOP:
		return "SOP"
	case EPH:
		return "EPH"
	case CRG:
		return "CRG"
	case COM:
		return "COM"
	case CAP:
		return "CAP"
	default:
		return "UNKNOWN"
	}
}

// Comment registration values for COM marker.
const (
	// CommentBinary indicates binary data.
	CommentBinary uint16 = 0
	// CommentLatin indicates Latin text (ISO 8859-15).
	CommentLatin uint16 = 1
)

// Package wav frames raw PCM audio into a standard WAV container.
package wav

import "errors"

// Container format constants.
const (
	// HeaderSize is the size of a standard WAV file header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format code for uncompressed PCM.
	FormatPCM = 1
)

var (
	// ErrShortHeader is returned when a buffer is too small to hold a WAV header.
	ErrShortHeader = errors.New("buffer smaller than WAV header")
	// ErrBadMagic is returned when the RIFF/WAVE markers are missing.
	ErrBadMagic = errors.New("not a RIFF/WAVE container")
)

// Header holds the decoded fields of a 44-byte PCM WAV header.
type Header struct {
	TotalSize     uint32 // declared RIFF chunk size (36 + data size)
	Format        uint16
	Channels      int
	SampleRate    int
	ByteRate      int
	BlockAlign    int
	BitsPerSample int
	DataSize      uint32
}

// WrapRawPCM adds a WAV header to raw PCM data.
// The payload is carried verbatim after the header; an empty payload
// still yields a structurally valid header describing zero-length data.
func WrapRawPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, HeaderSize)

	// RIFF header
	copy(header[0:4], "RIFF")
	PutLE32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	PutLE32(header[16:20], 16) // subchunk size
	PutLE16(header[20:22], FormatPCM)
	PutLE16(header[22:24], uint16(channels))
	PutLE32(header[24:28], uint32(sampleRate))
	PutLE32(header[28:32], uint32(byteRate))
	PutLE16(header[32:34], uint16(blockAlign))
	PutLE16(header[34:36], uint16(bitsPerSample))

	// data subchunk
	copy(header[36:40], "data")
	PutLE32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

// ParseHeader decodes the fixed 44-byte header produced by WrapRawPCM.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" || string(b[12:16]) != "fmt " {
		return Header{}, ErrBadMagic
	}

	return Header{
		TotalSize:     GetLE32(b[4:8]),
		Format:        GetLE16(b[20:22]),
		Channels:      int(GetLE16(b[22:24])),
		SampleRate:    int(GetLE32(b[24:28])),
		ByteRate:      int(GetLE32(b[28:32])),
		BlockAlign:    int(GetLE16(b[32:34])),
		BitsPerSample: int(GetLE16(b[34:36])),
		DataSize:      GetLE32(b[40:44]),
	}, nil
}

// Duration returns the playback length in seconds for a raw PCM payload.
func Duration(dataLen, sampleRate, channels, bitsPerSample int) float64 {
	byteRate := sampleRate * channels * bitsPerSample / 8
	if byteRate <= 0 {
		return 0
	}
	return float64(dataLen) / float64(byteRate)
}

// PutLE16 writes a uint16 value in little-endian format to a byte slice.
func PutLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// PutLE32 writes a uint32 value in little-endian format to a byte slice.
func PutLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// GetLE16 reads a little-endian uint16 from a byte slice.
func GetLE16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

// GetLE32 reads a little-endian uint32 from a byte slice.
func GetLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Package wav builds and inspects canonical 44-byte-header RIFF/WAVE containers
// holding uncompressed linear PCM.
package wav

import (
	"bytes"
	"errors"
	"fmt"
	"math"
)

// WAV format constants.
const (
	// HeaderSize is the size of a canonical WAV file header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format code for uncompressed PCM.
	FormatPCM = 1

	// fmtChunkSize is the size of the PCM "fmt " chunk body.
	fmtChunkSize = 16

	// riffOverhead is the part of the header counted by the RIFF size field
	// (everything after the first 8 bytes, minus the PCM payload).
	riffOverhead = HeaderSize - 8
)

// Mono 16-bit layout used for provider speech output.
const (
	// Channels is the channel count of relayed speech (mono).
	Channels = 1

	// BitsPerSample is the bit depth of relayed speech.
	BitsPerSample = 16

	// BytesPerSample is the size of one mono sample frame.
	BytesPerSample = Channels * BitsPerSample / 8

	// MaxSampleRate is the highest rate whose mono 16-bit byte rate fits
	// the header's 32-bit field.
	MaxSampleRate = math.MaxUint32 / BytesPerSample
)

// ErrInvalidHeader is returned when bytes do not start with a canonical PCM WAV header.
var ErrInvalidHeader = errors.New("invalid WAV header")

// Header is the decoded form of a canonical 44-byte WAV header.
type Header struct {
	FileSize      uint32
	FmtChunkSize  uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// Encode writes mono signed 16-bit samples into a complete WAV file.
// Samples are emitted little-endian in their original order.
func Encode(samples []int16, sampleRate int) []byte {
	pcm := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		PutLE16(pcm[i*BytesPerSample:], uint16(s))
	}
	return WrapRawPCM(pcm, sampleRate, Channels, BitsPerSample)
}

// WrapRawPCM prefixes raw little-endian PCM with a canonical header. The
// byte rate must fit in 32 bits: sampleRate*channels*bitsPerSample/8 is
// written truncated otherwise.
func WrapRawPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	header := make([]byte, HeaderSize, HeaderSize+len(pcm))
	writeHeader(header, len(pcm), sampleRate, channels, bitsPerSample)
	return append(header, pcm...)
}

func writeHeader(header []byte, dataSize, sampleRate, channels, bitsPerSample int) {
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	// RIFF header
	copy(header[0:4], "RIFF")
	PutLE32(header[4:8], uint32(riffOverhead+dataSize))
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	PutLE32(header[16:20], fmtChunkSize)
	PutLE16(header[20:22], FormatPCM)
	PutLE16(header[22:24], uint16(channels))
	PutLE32(header[24:28], uint32(sampleRate))
	PutLE32(header[28:32], uint32(byteRate))
	PutLE16(header[32:34], uint16(blockAlign))
	PutLE16(header[34:36], uint16(bitsPerSample))

	// data subchunk
	copy(header[36:40], "data")
	PutLE32(header[40:44], uint32(dataSize))
}

// ParseHeader decodes the canonical header at the start of data and checks
// that its size fields agree with the length of data.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidHeader, len(data), HeaderSize)
	}
	if !bytes.Equal(data[0:4], []byte("RIFF")) ||
		!bytes.Equal(data[8:12], []byte("WAVE")) ||
		!bytes.Equal(data[12:16], []byte("fmt ")) ||
		!bytes.Equal(data[36:40], []byte("data")) {
		return nil, fmt.Errorf("%w: missing chunk marker", ErrInvalidHeader)
	}

	h := &Header{
		FileSize:      LE32(data[4:8]),
		FmtChunkSize:  LE32(data[16:20]),
		AudioFormat:   LE16(data[20:22]),
		Channels:      LE16(data[22:24]),
		SampleRate:    LE32(data[24:28]),
		ByteRate:      LE32(data[28:32]),
		BlockAlign:    LE16(data[32:34]),
		BitsPerSample: LE16(data[34:36]),
		DataSize:      LE32(data[40:44]),
	}

	if int(h.DataSize) != len(data)-HeaderSize {
		return nil, fmt.Errorf("%w: data size %d does not match payload of %d bytes",
			ErrInvalidHeader, h.DataSize, len(data)-HeaderSize)
	}
	if h.FileSize != uint32(riffOverhead)+h.DataSize {
		return nil, fmt.Errorf("%w: file size %d inconsistent with data size %d",
			ErrInvalidHeader, h.FileSize, h.DataSize)
	}

	return h, nil
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

// LE16 reads a little-endian uint16.
func LE16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

// LE32 reads a little-endian uint32.
func LE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

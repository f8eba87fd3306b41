package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Sentinel errors for malformed containers and impossible merges
var (
	ErrFormat = errors.New("malformed wav container")
	ErrMerge  = errors.New("wav merge produced no audio")
)

// Canonical header layout constants
const (
	headerSize    = 44
	riffSizeSlack = 36 // RIFF size field counts everything after itself: 36 + data
)

// Header carries the format parameters and data location parsed from a
// RIFF/WAVE container. DataOffset and DataSize locate the raw PCM payload
// inside the original byte slice.
type Header struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	DataOffset    int
	DataSize      int
}

// ByteRate returns bytes of PCM per second of playback
func (h Header) ByteRate() int {
	return int(h.SampleRate) * int(h.Channels) * int(h.BitsPerSample) / 8
}

// BlockAlign returns the size of one sample frame across all channels
func (h Header) BlockAlign() int {
	return int(h.Channels) * int(h.BitsPerSample) / 8
}

// sameFormat reports whether two headers describe identical PCM encodings
func (h Header) sameFormat(other Header) bool {
	return h.AudioFormat == other.AudioFormat &&
		h.Channels == other.Channels &&
		h.SampleRate == other.SampleRate &&
		h.BitsPerSample == other.BitsPerSample
}

// ParseHeader reads the format parameters out of a RIFF/WAVE container.
// Sub-chunks are located by scanning id/size pairs from byte 12 rather
// than assuming fixed offsets, since extension chunks (LIST, fact, cue)
// may sit between "fmt " and "data".
func ParseHeader(data []byte) (Header, error) {
	if len(data) < headerSize {
		return Header{}, fmt.Errorf("%w: %d bytes is too short for a header", ErrFormat, len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return Header{}, fmt.Errorf("%w: missing RIFF magic", ErrFormat)
	}
	if string(data[8:12]) != "WAVE" {
		return Header{}, fmt.Errorf("%w: missing WAVE magic", ErrFormat)
	}

	var h Header
	foundFmt := false
	foundData := false

	// Walk the sub-chunk list: 4-byte id, 4-byte little-endian size, payload
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8

		switch id {
		case "fmt ":
			if body+16 > len(data) {
				return Header{}, fmt.Errorf("%w: truncated fmt chunk", ErrFormat)
			}
			h.AudioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			h.Channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			h.SampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			h.BitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			foundFmt = true

		case "data":
			h.DataOffset = body
			h.DataSize = size
			if h.DataOffset+h.DataSize > len(data) {
				// Declared size overruns the buffer; trust the bytes we have
				h.DataSize = len(data) - h.DataOffset
			}
			foundData = true
		}

		if foundFmt && foundData {
			break
		}

		// Chunks are word-aligned; odd sizes carry a pad byte
		if size%2 == 1 {
			size++
		}
		pos = body + size
	}

	if !foundFmt {
		return Header{}, fmt.Errorf("%w: no fmt chunk", ErrFormat)
	}
	if !foundData {
		return Header{}, fmt.Errorf("%w: no data chunk", ErrFormat)
	}

	return h, nil
}

// EncodeHeader builds a canonical 44-byte header for a PCM payload of
// dataLen bytes using the format parameters of h. All integer fields are
// little-endian.
func EncodeHeader(h Header, dataLen int) []byte {
	buf := make([]byte, headerSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(riffSizeSlack+dataLen))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt payload size for PCM
	binary.LittleEndian.PutUint16(buf[20:22], h.AudioFormat)
	binary.LittleEndian.PutUint16(buf[22:24], h.Channels)
	binary.LittleEndian.PutUint32(buf[24:28], h.SampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], uint32(h.ByteRate()))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(h.BlockAlign()))
	binary.LittleEndian.PutUint16(buf[34:36], h.BitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))

	return buf
}

// Merge concatenates the PCM payloads of several WAV chunks into a single
// container with a rebuilt header. A single chunk passes through
// byte-identical. Every chunk must share the first chunk's format
// parameters exactly; a mismatch is a caller bug and fails the merge
// rather than being silently coerced (no resampling is performed here).
func Merge(chunks [][]byte) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks supplied", ErrMerge)
	}
	if len(chunks) == 1 {
		return chunks[0], nil
	}

	first, err := ParseHeader(chunks[0])
	if err != nil {
		return nil, fmt.Errorf("chunk 0: %w", err)
	}

	totalData := 0
	headers := make([]Header, len(chunks))
	headers[0] = first
	for i := 1; i < len(chunks); i++ {
		h, err := ParseHeader(chunks[i])
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		if !h.sameFormat(first) {
			return nil, fmt.Errorf("%w: chunk %d format %dHz/%dch/%dbit differs from chunk 0 %dHz/%dch/%dbit",
				ErrFormat, i,
				h.SampleRate, h.Channels, h.BitsPerSample,
				first.SampleRate, first.Channels, first.BitsPerSample)
		}
		headers[i] = h
	}
	for i := range chunks {
		totalData += headers[i].DataSize
	}

	if totalData == 0 {
		return nil, fmt.Errorf("%w: all chunks carry empty payloads", ErrMerge)
	}

	// Rebuilt header first, then every payload in input order
	out := make([]byte, 0, headerSize+totalData)
	out = append(out, EncodeHeader(first, totalData)...)
	for i, c := range chunks {
		h := headers[i]
		out = append(out, c[h.DataOffset:h.DataOffset+h.DataSize]...)
	}

	return out, nil
}

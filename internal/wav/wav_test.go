package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// makeWAV builds a canonical PCM container around the given payload
func makeWAV(sampleRate uint32, channels, bits uint16, payload []byte) []byte {
	h := Header{
		AudioFormat:   1,
		Channels:      channels,
		SampleRate:    sampleRate,
		BitsPerSample: bits,
	}
	return append(EncodeHeader(h, len(payload)), payload...)
}

// makeWAVWithListChunk inserts a LIST chunk between "fmt " and "data" to
// exercise the sub-chunk scan
func makeWAVWithListChunk(sampleRate uint32, channels, bits uint16, payload []byte) []byte {
	canonical := makeWAV(sampleRate, channels, bits, payload)

	listBody := []byte("INFOISFT test")
	if len(listBody)%2 == 1 {
		listBody = append(listBody, 0)
	}

	out := make([]byte, 0, len(canonical)+8+len(listBody))
	out = append(out, canonical[:36]...) // RIFF..fmt chunk
	out = append(out, "LIST"...)
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(listBody)))
	out = append(out, size[:]...)
	out = append(out, listBody...)
	out = append(out, canonical[36:]...) // data chunk onward
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out
}

func TestParseHeader(t *testing.T) {
	payload := make([]byte, 320)
	data := makeWAV(16000, 1, 16, payload)

	h, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}

	if h.AudioFormat != 1 {
		t.Errorf("Expected AudioFormat 1, got %d", h.AudioFormat)
	}
	if h.SampleRate != 16000 {
		t.Errorf("Expected SampleRate 16000, got %d", h.SampleRate)
	}
	if h.Channels != 1 {
		t.Errorf("Expected Channels 1, got %d", h.Channels)
	}
	if h.BitsPerSample != 16 {
		t.Errorf("Expected BitsPerSample 16, got %d", h.BitsPerSample)
	}
	if h.DataOffset != 44 {
		t.Errorf("Expected DataOffset 44, got %d", h.DataOffset)
	}
	if h.DataSize != 320 {
		t.Errorf("Expected DataSize 320, got %d", h.DataSize)
	}
}

func TestParseHeader_ExtensionChunkBeforeData(t *testing.T) {
	payload := make([]byte, 100)
	data := makeWAVWithListChunk(22050, 2, 16, payload)

	h, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader failed on LIST-bearing container: %v", err)
	}

	if h.SampleRate != 22050 || h.Channels != 2 {
		t.Errorf("Unexpected format: %+v", h)
	}
	if h.DataSize != 100 {
		t.Errorf("Expected DataSize 100, got %d", h.DataSize)
	}
	if !bytes.Equal(data[h.DataOffset:h.DataOffset+h.DataSize], payload) {
		t.Error("DataOffset does not point at the payload")
	}
}

func TestParseHeader_BadMagic(t *testing.T) {
	data := make([]byte, 64)
	copy(data, "JUNK")

	_, err := ParseHeader(data)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
}

func TestParseHeader_TooShort(t *testing.T) {
	_, err := ParseHeader([]byte("RIFF"))
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
}

func TestParseHeader_MissingDataChunk(t *testing.T) {
	data := makeWAV(16000, 1, 16, nil)
	// Corrupt the data chunk id
	copy(data[36:40], "junk")

	_, err := ParseHeader(data)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
}

func TestMerge_SingleChunkPassthrough(t *testing.T) {
	data := makeWAV(16000, 1, 16, []byte{1, 2, 3, 4})

	out, err := Merge([][]byte{data})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if !bytes.Equal(out, data) {
		t.Error("Single-chunk merge must be byte-identical passthrough")
	}
}

func TestMerge_ThreeChunks(t *testing.T) {
	p1 := bytes.Repeat([]byte{0x01}, 3200)
	p2 := bytes.Repeat([]byte{0x02}, 1600)
	p3 := bytes.Repeat([]byte{0x03}, 4800)

	out, err := Merge([][]byte{
		makeWAV(16000, 1, 16, p1),
		makeWAV(16000, 1, 16, p2),
		makeWAV(16000, 1, 16, p3),
	})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	total := len(p1) + len(p2) + len(p3)

	if len(out) != 44+total {
		t.Fatalf("Expected %d bytes, got %d", 44+total, len(out))
	}

	fileSize := binary.LittleEndian.Uint32(out[4:8])
	if fileSize != uint32(36+total) {
		t.Errorf("Expected RIFF size %d, got %d", 36+total, fileSize)
	}

	dataSize := binary.LittleEndian.Uint32(out[40:44])
	if dataSize != uint32(total) {
		t.Errorf("Expected data size %d, got %d", total, dataSize)
	}

	// Payloads concatenated in input order
	if !bytes.Equal(out[44:44+len(p1)], p1) {
		t.Error("First payload out of place")
	}
	if !bytes.Equal(out[44+len(p1):44+len(p1)+len(p2)], p2) {
		t.Error("Second payload out of place")
	}
	if !bytes.Equal(out[44+len(p1)+len(p2):], p3) {
		t.Error("Third payload out of place")
	}

	// Duration of merged asset: 9600 bytes at 16000Hz*1ch*16bit = 32000 B/s
	seconds, exact := Duration(out)
	if !exact {
		t.Error("Expected exact duration from merged header")
	}
	if seconds != 1 { // ceil(9600/32000)
		t.Errorf("Expected 1 second, got %d", seconds)
	}
}

func TestMerge_FormatMismatch(t *testing.T) {
	a := makeWAV(16000, 1, 16, make([]byte, 100))
	b := makeWAV(22050, 1, 16, make([]byte, 100))

	_, err := Merge([][]byte{a, b})
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for mismatched sample rates, got %v", err)
	}
}

func TestMerge_ChannelMismatch(t *testing.T) {
	a := makeWAV(16000, 1, 16, make([]byte, 100))
	b := makeWAV(16000, 2, 16, make([]byte, 100))

	_, err := Merge([][]byte{a, b})
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for mismatched channels, got %v", err)
	}
}

func TestMerge_NoChunks(t *testing.T) {
	_, err := Merge(nil)
	if !errors.Is(err, ErrMerge) {
		t.Errorf("Expected ErrMerge, got %v", err)
	}
}

func TestMerge_AllEmptyPayloads(t *testing.T) {
	a := makeWAV(16000, 1, 16, nil)
	b := makeWAV(16000, 1, 16, nil)

	_, err := Merge([][]byte{a, b})
	if !errors.Is(err, ErrMerge) {
		t.Errorf("Expected ErrMerge for empty payloads, got %v", err)
	}
}

func TestMerge_ExtensionChunkInput(t *testing.T) {
	p1 := bytes.Repeat([]byte{0xAA}, 200)
	p2 := bytes.Repeat([]byte{0xBB}, 100)

	out, err := Merge([][]byte{
		makeWAVWithListChunk(16000, 1, 16, p1),
		makeWAV(16000, 1, 16, p2),
	})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if !bytes.Equal(out[44:244], p1) || !bytes.Equal(out[244:], p2) {
		t.Error("Payloads not extracted cleanly from LIST-bearing container")
	}
}

func TestDuration(t *testing.T) {
	// 2 seconds: 64000 bytes at 16000Hz mono 16-bit (32000 B/s)
	data := makeWAV(16000, 1, 16, make([]byte, 64000))

	seconds, exact := Duration(data)
	if !exact {
		t.Error("Expected exact duration")
	}
	if seconds != 2 {
		t.Errorf("Expected 2 seconds, got %d", seconds)
	}
}

func TestDuration_RoundsUp(t *testing.T) {
	// 1.5 seconds of audio must report as 2
	data := makeWAV(16000, 1, 16, make([]byte, 48000))

	seconds, _ := Duration(data)
	if seconds != 2 {
		t.Errorf("Expected ceil to 2 seconds, got %d", seconds)
	}
}

func TestDuration_FallbackOnJunk(t *testing.T) {
	junk := bytes.Repeat([]byte{0x42}, 40000)

	seconds, exact := Duration(junk)
	if exact {
		t.Error("Expected approximate duration for junk input")
	}
	if seconds != 3 { // ceil(40000/16000)
		t.Errorf("Expected 3 seconds from fallback, got %d", seconds)
	}
}

func TestDuration_FallbackMinimumOneSecond(t *testing.T) {
	seconds, exact := Duration([]byte{1, 2, 3})
	if exact {
		t.Error("Expected approximate duration")
	}
	if seconds != 1 {
		t.Errorf("Expected minimum 1 second, got %d", seconds)
	}
}

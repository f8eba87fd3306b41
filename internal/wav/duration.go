package wav

import "encoding/binary"

// Fallback rate when a payload cannot be parsed: 16 kHz mono 8-bit
const fallbackBytesPerSecond = 16000

// Duration derives the playable duration in whole seconds from a WAV
// payload, reading the canonical 44-byte header layout produced by
// EncodeHeader (and by typical provider output). The returned flag is
// false when the header could not be trusted and the value is a crude
// byte-length estimate instead. Duration is advisory metadata, so a
// degraded estimate beats a failure.
func Duration(data []byte) (seconds int, exact bool) {
	if len(data) < headerSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return estimateDuration(len(data)), false
	}

	channels := binary.LittleEndian.Uint16(data[22:24])
	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(data[34:36])
	dataSize := binary.LittleEndian.Uint32(data[40:44])

	bytesPerSecond := int(sampleRate) * int(channels) * int(bitsPerSample) / 8
	if bytesPerSecond <= 0 {
		return estimateDuration(len(data)), false
	}

	return ceilDiv(int(dataSize), bytesPerSecond), true
}

// estimateDuration guesses a duration from raw byte length alone
func estimateDuration(byteLen int) int {
	d := ceilDiv(byteLen, fallbackBytesPerSecond)
	if d < 1 {
		d = 1
	}
	return d
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

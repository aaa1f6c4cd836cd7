package audio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
)

// Format describes raw PCM audio layout.
type Format struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// SegmentFormat is the fixed layout of flushed capture segments: stereo
// 16-bit signed samples at 48 kHz. This is a contract with the speech
// engine, not a negotiated parameter.
func SegmentFormat() Format {
	return Format{Channels: 2, SampleRate: 48000, BitsPerSample: 16}
}

// EncodeWAVPCM16LE wraps raw PCM16LE audio bytes in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWAVPCM16LETo(&buf, pcm, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAVPCM16LETo writes raw PCM16LE audio bytes to out as a WAV stream.
func WriteWAVPCM16LETo(out io.Writer, pcm []byte, format Format) error {
	const audioFormat = 1 // PCM

	if format.Channels <= 0 {
		format.Channels = 2
	}
	if format.SampleRate <= 0 {
		format.SampleRate = 48000
	}
	if format.BitsPerSample <= 0 {
		format.BitsPerSample = 16
	}

	dataSize := uint32(len(pcm))
	byteRate := uint32(format.SampleRate * format.Channels * format.BitsPerSample / 8)
	blockAlign := uint16(format.Channels * format.BitsPerSample / 8)

	w := bufio.NewWriter(out)

	// RIFF header.
	if _, err := w.WriteString("RIFF"); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(36)+dataSize); err != nil {
		return err
	}
	if _, err := w.WriteString("WAVE"); err != nil {
		return err
	}

	// fmt chunk.
	if _, err := w.WriteString("fmt "); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(audioFormat)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(format.Channels)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(format.SampleRate)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, byteRate); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, blockAlign); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(format.BitsPerSample)); err != nil {
		return err
	}

	// data chunk.
	if _, err := w.WriteString("data"); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, dataSize); err != nil {
		return err
	}
	if _, err := w.Write(pcm); err != nil {
		return err
	}
	return w.Flush()
}

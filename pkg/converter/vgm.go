package converter

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// VGM layout constants
const (
	VGMMinHeaderSize    = 0x40
	vgmDataOffsetField  = 0x34
	vgmDefaultDataStart = 0x40
	vgmWonderSwanClock  = 0xC0
)

// VGM command opcodes handled by the reader
const (
	cmdWait         = 0x61
	cmdWait60th     = 0x62
	cmdWait50th     = 0x63
	cmdEnd          = 0x66
	cmdDataBlock    = 0x67
	cmdWonderSwanIO = 0xB3
	cmdWonderSwanRM = 0xBC

	wait60thSamples = 735 // 44100 / 60
	wait50thSamples = 882 // 44100 / 50
)

var (
	vgmIdent  = []byte("Vgm ")
	gzipIdent = []byte{0x1F, 0x8B}
)

// VGMHeader holds the header fields the converter reports on
type VGMHeader struct {
	Version         uint32
	EOFOffset       uint32 // absolute
	GD3Offset       uint32 // absolute, 0 if absent
	TotalSamples    uint32
	LoopOffset      uint32 // absolute, 0 if absent
	LoopSamples     uint32
	DataStart       uint64 // absolute
	WonderSwanClock uint32 // 0 if the header is too old to carry it
}

// VGMStats summarises one pass over the command stream
type VGMStats struct {
	Commands  int
	Writes    int
	Waits     int
	Skipped   int
	Samples   uint64
	Truncated bool // a command ran past the end of the buffer
	Ended     bool // an explicit end-of-data command was seen
}

// ReadVGMHeader validates data and decodes its header
func ReadVGMHeader(data []byte) (*VGMHeader, error) {
	if len(data) < VGMMinHeaderSize {
		return nil, &FormatError{Reason: fmt.Sprintf("header too small: got %d bytes, need at least %d", len(data), VGMMinHeaderSize)}
	}
	if !bytes.Equal(data[:4], vgmIdent) {
		return nil, &FormatError{Reason: fmt.Sprintf("magic number mismatch: got % X", data[:4])}
	}

	le := binary.LittleEndian
	h := &VGMHeader{
		Version:      le.Uint32(data[0x08:0x0C]),
		TotalSamples: le.Uint32(data[0x18:0x1C]),
		LoopSamples:  le.Uint32(data[0x20:0x24]),
	}
	if v := le.Uint32(data[0x04:0x08]); v != 0 {
		h.EOFOffset = v + 0x04
	}
	if v := le.Uint32(data[0x14:0x18]); v != 0 {
		h.GD3Offset = v + 0x14
	}
	if v := le.Uint32(data[0x1C:0x20]); v != 0 && v != 0xFFFFFFFF {
		h.LoopOffset = v + 0x1C
	}

	offset := le.Uint32(data[vgmDataOffsetField : vgmDataOffsetField+4])
	if offset == 0 {
		h.DataStart = vgmDefaultDataStart
	} else {
		h.DataStart = vgmDataOffsetField + uint64(offset)
	}

	if h.DataStart >= vgmWonderSwanClock+4 && len(data) >= vgmWonderSwanClock+4 {
		h.WonderSwanClock = le.Uint32(data[vgmWonderSwanClock : vgmWonderSwanClock+4])
	}

	return h, nil
}

// LoadVGM reads a .vgm or gzip-compressed .vgz file into memory
func LoadVGM(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &IOError{Op: "read", Path: filename, Err: err}
	}
	return Decompress(data)
}

// Decompress inflates gzip-compressed VGM data and returns other data as is
func Decompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, gzipIdent) {
		return data, nil
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("bad gzip stream: %v", err)}
	}
	defer func() { _ = gz.Close() }()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("bad gzip stream: %v", err)}
	}
	return raw, nil
}

// VGMReader interprets a VGM command stream and drives a chip model
type VGMReader struct {
	chip   Chip
	logger Logger
}

// NewVGMReader creates a reader that forwards commands to chip
func NewVGMReader(chip Chip, logger Logger) *VGMReader {
	return &VGMReader{chip: chip, logger: logger}
}

// ParseVGM validates data and runs its command stream against the chip.
// Running out of data, even in the middle of a command, is a clean end.
func (r *VGMReader) ParseVGM(data []byte) (*VGMStats, error) {
	header, err := ReadVGMHeader(data)
	if err != nil {
		return nil, err
	}
	r.logf("vgm", "version %X, data at 0x%X, %d bytes", header.Version, header.DataStart, len(data))

	stats := r.run(data, header.DataStart)
	r.logf("vgm", "%d commands, %d writes, %d waits, %d skipped, %d samples, ended=%t truncated=%t",
		stats.Commands, stats.Writes, stats.Waits, stats.Skipped, stats.Samples, stats.Ended, stats.Truncated)
	return &stats, nil
}

func (r *VGMReader) run(data []byte, start uint64) VGMStats {
	var st VGMStats
	end := uint64(len(data))
	pos := start

	for pos < end {
		cmd := data[pos]
		st.Commands++

		switch {
		case cmd == cmdWait:
			if pos+3 > end {
				st.Truncated = true
				return st
			}
			r.wait(&st, uint32(binary.LittleEndian.Uint16(data[pos+1:pos+3])))
			pos += 3

		case cmd == cmdWait60th:
			r.wait(&st, wait60thSamples)
			pos++

		case cmd == cmdWait50th:
			r.wait(&st, wait50thSamples)
			pos++

		case cmd == cmdEnd:
			st.Ended = true
			return st

		case cmd >= 0x70 && cmd <= 0x7F:
			r.wait(&st, uint32(cmd&0x0F)+1)
			pos++

		case cmd == cmdWonderSwanIO || cmd == cmdWonderSwanRM:
			if pos+3 > end {
				st.Truncated = true
				return st
			}
			r.chip.WritePort(data[pos+1], data[pos+2])
			st.Writes++
			pos += 3

		case cmd == cmdDataBlock:
			if pos+7 > end {
				st.Truncated = true
				return st
			}
			skip := 6 + uint64(binary.LittleEndian.Uint32(data[pos+3:pos+7]))
			if pos+skip > end {
				st.Truncated = true
				return st
			}
			st.Skipped++
			pos += skip

		case cmd >= 0x80 && cmd <= 0x8F:
			// DAC stream writes, not used by the WonderSwan
			if pos+3 > end {
				st.Truncated = true
				return st
			}
			st.Skipped++
			pos += 3

		default:
			st.Skipped++
			pos++
		}
	}

	return st
}

func (r *VGMReader) wait(st *VGMStats, samples uint32) {
	r.chip.AdvanceTime(samples)
	st.Waits++
	st.Samples += uint64(samples)
}

func (r *VGMReader) logf(category, format string, args ...any) {
	if r.logger != nil {
		r.logger.Logf(category, format, args...)
	}
}

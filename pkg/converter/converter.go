package converter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Format represents a file format
type Format string

const (
	FormatVGM     Format = "vgm"
	FormatMIDI    Format = "midi"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".vgm", ".vgz":
		return FormatVGM
	case ".mid", ".midi":
		return FormatMIDI
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	switch {
	case string(data[:4]) == "MThd":
		return FormatMIDI
	case string(data[:4]) == string(vgmIdent):
		return FormatVGM
	case data[0] == gzipIdent[0] && data[1] == gzipIdent[1]:
		// .vgz
		return FormatVGM
	default:
		return FormatUnknown
	}
}

// Result is the outcome of a conversion
type Result struct {
	MIDI   []byte
	Header *VGMHeader
	Stats  *VGMStats
	Events int
}

// ConvertFile converts a VGM dump on disk to a MIDI file.
// The output file is only created once the whole MIDI image exists.
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	_, err := c.ConvertFileResult(inputPath, outputPath)
	return err
}

// ConvertFileResult is ConvertFile that also reports what was converted
func (c *Converter) ConvertFileResult(inputPath, outputPath string) (*Result, error) {
	data, err := LoadVGM(inputPath)
	if err != nil {
		return nil, err
	}

	res, err := c.Convert(data)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(outputPath, res.MIDI, 0644); err != nil {
		return nil, &IOError{Op: "write", Path: outputPath, Err: err}
	}
	return res, nil
}

// VGMToMIDI converts VGM data to MIDI format
func (c *Converter) VGMToMIDI(vgmData []byte) ([]byte, error) {
	res, err := c.Convert(vgmData)
	if err != nil {
		return nil, err
	}
	return res.MIDI, nil
}

// Convert runs the full pipeline on VGM data, which may be gzip-compressed
func (c *Converter) Convert(vgmData []byte) (*Result, error) {
	if c.device == nil {
		return nil, errors.New("no device configured")
	}

	data, err := Decompress(vgmData)
	if err != nil {
		return nil, err
	}

	// Reject bad input before the chip emits anything
	header, err := ReadVGMHeader(data)
	if err != nil {
		return nil, err
	}

	writer := NewMIDIWriter(c.opts.PPQN)
	chip := c.device.NewChip(writer, c.opts)
	reader := NewVGMReader(chip, c.opts.Logger)

	stats, err := reader.ParseVGM(data)
	if err != nil {
		return nil, err
	}

	midiData, err := writer.Bytes()
	if err != nil {
		return nil, err
	}

	return &Result{
		MIDI:   midiData,
		Header: header,
		Stats:  stats,
		Events: len(writer.events),
	}, nil
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"vgm -> midi",
		"vgz -> midi",
	}
}

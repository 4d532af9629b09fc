package converter

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"slices"

	"gitlab.com/gomidi/midi/v2/smf"
)

// TrackEvent is one channel message read back from a MIDI file
type TrackEvent struct {
	Tick    uint64 `json:"tick"`
	Kind    string `json:"kind"`
	Channel uint8  `json:"channel"`
	Data1   uint8  `json:"data1"`
	Data2   uint8  `json:"data2"`
}

// MIDISummary describes the contents of a MIDI file
type MIDISummary struct {
	Format     uint16       `json:"format"`
	Tracks     int          `json:"tracks"`
	Resolution uint16       `json:"resolution"`
	NoteOns    int          `json:"noteOns"`
	Channels   []int        `json:"channels"`
	MinNote    uint8        `json:"minNote"`
	MaxNote    uint8        `json:"maxNote"`
	TotalTicks uint64       `json:"totalTicks"`
	Events     []TrackEvent `json:"events,omitempty"`
}

// InspectMIDIFile reads a MIDI file and summarises it
func InspectMIDIFile(filename string, withEvents bool) (*MIDISummary, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &IOError{Op: "read", Path: filename, Err: err}
	}
	return InspectMIDI(data, withEvents)
}

// InspectMIDI parses MIDI data and summarises it. Channel messages of all
// tracks are collected; withEvents keeps a per-event log.
func InspectMIDI(data []byte, withEvents bool) (*MIDISummary, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	sum := &MIDISummary{
		Format: binary.BigEndian.Uint16(data[8:10]),
		Tracks: len(s.Tracks),
	}
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		sum.Resolution = mt.Resolution()
	}

	channels := make(map[uint8]bool)
	first := true

	for _, track := range s.Tracks {
		var tick uint64
		for _, ev := range track {
			tick += uint64(ev.Delta)
			msg := ev.Message

			if len(msg) < 2 || msg[0] < 0x80 || msg[0] >= 0xF0 {
				continue
			}
			kind := EventKind(msg[0] & 0xF0)
			ch := msg[0] & 0x0F
			te := TrackEvent{Tick: tick, Kind: kind.String(), Channel: ch, Data1: msg[1]}
			if len(msg) > 2 {
				te.Data2 = msg[2]
			}

			// Note on with velocity 0 is a note off
			if kind == KindNoteOn && te.Data2 > 0 {
				sum.NoteOns++
				channels[ch] = true
				if first || te.Data1 < sum.MinNote {
					sum.MinNote = te.Data1
				}
				if first || te.Data1 > sum.MaxNote {
					sum.MaxNote = te.Data1
				}
				first = false
			}
			if withEvents {
				sum.Events = append(sum.Events, te)
			}
		}
		sum.TotalTicks = max(sum.TotalTicks, tick)
	}

	for ch := range channels {
		sum.Channels = append(sum.Channels, int(ch))
	}
	slices.Sort(sum.Channels)
	return sum, nil
}

// WriteSummary prints a summary in the layout used by the inspect command
func WriteSummary(w io.Writer, sum *MIDISummary) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Format: %d, Tracks: %d, Ticks/QN: %d\n", sum.Format, sum.Tracks, sum.Resolution)

	if len(sum.Events) > 0 {
		fmt.Fprintf(bw, "%8s | %-15s | Ch | %6s | %6s\n", "Tick", "Event", "Data 1", "Data 2")
		for _, ev := range sum.Events {
			fmt.Fprintf(bw, "%8d | %-15s | %2d | %6d | %6d\n", ev.Tick, ev.Kind, ev.Channel, ev.Data1, ev.Data2)
		}
	}

	fmt.Fprintf(bw, "Note ons: %d\n", sum.NoteOns)
	fmt.Fprintf(bw, "Channels: %v\n", sum.Channels)
	if sum.NoteOns > 0 {
		fmt.Fprintf(bw, "Pitch range: %d-%d\n", sum.MinNote, sum.MaxNote)
	}
	fmt.Fprintf(bw, "Total ticks: %d\n", sum.TotalTicks)
	return bw.Flush()
}

// HexDump writes data as rows of 16 hex bytes prefixed by their offset
func HexDump(w io.Writer, data []byte) error {
	bw := bufio.NewWriter(w)
	for i, b := range data {
		if i%16 == 0 {
			fmt.Fprintf(bw, "%08x: ", i)
		}
		fmt.Fprintf(bw, "%02x ", b)
		if (i+1)%16 == 0 || i == len(data)-1 {
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

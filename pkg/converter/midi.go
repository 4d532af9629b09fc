package converter

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// MaxVLQLength is the longest encoding of a 32-bit value
const MaxVLQLength = 5

// MIDIWriter collects events and serializes a single-track MIDI file
type MIDIWriter struct {
	ticksPerQuarter uint16
	events          []Event
}

// NewMIDIWriter creates a new MIDI writer with the given division
func NewMIDIWriter(ppqn uint16) *MIDIWriter {
	if ppqn == 0 {
		ppqn = DefaultPPQN
	}
	return &MIDIWriter{
		ticksPerQuarter: ppqn,
	}
}

// PPQN returns the division written to the header
func (m *MIDIWriter) PPQN() uint16 {
	return m.ticksPerQuarter
}

// NoteOn queues a note-on event
func (m *MIDIWriter) NoteOn(channel, note, velocity uint8, tick uint32) {
	m.add(Event{Tick: tick, Kind: KindNoteOn, Channel: channel, Data1: note, Data2: velocity})
}

// NoteOff queues a note-off event
func (m *MIDIWriter) NoteOff(channel, note uint8, tick uint32) {
	m.add(Event{Tick: tick, Kind: KindNoteOff, Channel: channel, Data1: note})
}

// ProgramChange queues a program change
func (m *MIDIWriter) ProgramChange(channel, program uint8, tick uint32) {
	m.add(Event{Tick: tick, Kind: KindProgramChange, Channel: channel, Data1: program})
}

// ControlChange queues a control change
func (m *MIDIWriter) ControlChange(channel, controller, value uint8, tick uint32) {
	m.add(Event{Tick: tick, Kind: KindControlChange, Channel: channel, Data1: controller, Data2: value})
}

func (m *MIDIWriter) add(ev Event) {
	m.events = append(m.events, ev)
}

// Events returns the queued events in arrival order
func (m *MIDIWriter) Events() []Event {
	return slices.Clone(m.events)
}

// SortedEvents returns the queued events in the order they are written.
// Events at the same tick go program changes, control changes, note offs,
// note ons; anything still tied keeps arrival order.
func (m *MIDIWriter) SortedEvents() []Event {
	sorted := slices.Clone(m.events)
	slices.SortStableFunc(sorted, compareEvents)
	return sorted
}

func compareEvents(a, b Event) int {
	if a.Tick != b.Tick {
		if a.Tick < b.Tick {
			return -1
		}
		return 1
	}
	return kindRank(a.Kind) - kindRank(b.Kind)
}

// kindRank keeps the tick 0 program changes ahead of everything else
func kindRank(k EventKind) int {
	switch k {
	case KindProgramChange:
		return 0
	case KindControlChange:
		return 1
	case KindNoteOff:
		return 2
	case KindNoteOn:
		return 3
	default:
		return 4 + int(k>>4)
	}
}

// Message returns the wire bytes of the event. Data bytes keep their low
// 7 bits only.
func (e Event) Message() midi.Message {
	d1, d2 := e.Data1&0x7F, e.Data2&0x7F
	switch e.Kind {
	case KindNoteOn:
		return midi.NoteOn(e.Channel, d1, d2)
	case KindNoteOff:
		return midi.NoteOff(e.Channel, d1)
	case KindProgramChange:
		return midi.ProgramChange(e.Channel, d1)
	case KindControlChange:
		return midi.ControlChange(e.Channel, d1, d2)
	default:
		return midi.Message{e.Status(), d1, d2}
	}
}

// Track returns the sorted events as a closed SMF track
func (m *MIDIWriter) Track() smf.Track {
	var track smf.Track
	var last uint32

	for _, ev := range m.SortedEvents() {
		track.Add(ev.Tick-last, ev.Message().Bytes())
		last = ev.Tick
	}

	// End of track
	track.Close(0)
	return track
}

// WriteTo writes the complete MIDI file to w
func (m *MIDIWriter) WriteTo(w io.Writer) (int64, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(m.ticksPerQuarter)
	s.NoRunningStatus = true

	if err := s.Add(m.Track()); err != nil {
		return 0, fmt.Errorf("failed to add track: %w", err)
	}
	return s.WriteTo(w)
}

// Bytes returns the complete MIDI file
func (m *MIDIWriter) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// AppendVLQ appends value as a MIDI variable-length quantity
func AppendVLQ(dst []byte, value uint32) []byte {
	if value == 0 {
		return append(dst, 0x00)
	}

	var groups [MaxVLQLength]byte
	n := 0
	for v := value; v > 0; v >>= 7 {
		groups[n] = byte(v & 0x7F)
		n++
	}

	for n > 0 {
		n--
		b := groups[n]
		if n > 0 {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}

// EncodeVLQ returns value as a MIDI variable-length quantity
func EncodeVLQ(value uint32) []byte {
	return AppendVLQ(nil, value)
}

// DecodeVLQ reads a variable-length quantity from the start of data and
// returns the value and the number of bytes consumed
func DecodeVLQ(data []byte) (uint32, int, error) {
	var value uint32
	for i := 0; i < len(data) && i < MaxVLQLength; i++ {
		b := data[i]
		value = value<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	if len(data) < MaxVLQLength {
		return 0, 0, io.ErrUnexpectedEOF
	}
	return 0, 0, fmt.Errorf("variable-length quantity longer than %d bytes", MaxVLQLength)
}

package devices

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/james-see/wonderswan2midi/pkg/converter"
)

func TestPeriodToNote(t *testing.T) {
	tests := []struct {
		period int
		want   int
	}{
		{0, 30},
		{1536, 54},
		{1792, 66},
		{1920, 78},
		{2047, 162}, // not clamped to 127
		{2048, 0},
		{4000, 0},
	}

	for _, tt := range tests {
		if got := PeriodToNote(tt.period); got != tt.want {
			t.Errorf("PeriodToNote(%d) = %d, want %d", tt.period, got, tt.want)
		}
	}
}

func TestVolumeToVelocity(t *testing.T) {
	tests := []struct {
		volume int
		want   int
	}{
		{0, 0},
		{1, 56},
		{8, 105},
		{15, 127},
	}
	for _, tt := range tests {
		if got := VolumeToVelocity(tt.volume); got != tt.want {
			t.Errorf("VolumeToVelocity(%d) = %d, want %d", tt.volume, got, tt.want)
		}
	}

	prev := 0
	for v := 1; v <= WSMaxVolume; v++ {
		got := VolumeToVelocity(v)
		if got <= prev || got > 127 {
			t.Errorf("VolumeToVelocity(%d) = %d, not above %d", v, got, prev)
		}
		prev = got
	}
}

func TestSamplesToTicks(t *testing.T) {
	tests := []struct {
		samples uint32
		ppqn    uint16
		want    uint32
	}{
		{0, 480, 0},
		{1, 480, 0},
		{735, 480, 16},
		{44100, 480, 960},
		{44100, 96, 192},
		{88200, 960, 3840},
	}
	for _, tt := range tests {
		if got := SamplesToTicks(tt.samples, tt.ppqn); got != tt.want {
			t.Errorf("SamplesToTicks(%d, %d) = %d, want %d", tt.samples, tt.ppqn, got, tt.want)
		}
	}
}

func newChip(t *testing.T) (*WonderSwan, *converter.MIDIWriter) {
	t.Helper()
	w := converter.NewMIDIWriter(480)
	ws := NewWonderSwan(w, converter.DefaultOptions())
	return ws, w
}

// noteEvents drops the four initial program changes
func noteEvents(w *converter.MIDIWriter) []converter.Event {
	return w.Events()[WSChannels:]
}

// play sets channel 0 to period 1792 at full volume and enables it
func play(ws *WonderSwan) {
	ws.WritePort(0x00, 0x00)
	ws.WritePort(0x01, 0x07)
	ws.WritePort(0x08, 0xFF)
	ws.WritePort(0x10, 0x01)
}

func TestNewWonderSwanProgramChanges(t *testing.T) {
	w := converter.NewMIDIWriter(480)
	NewWonderSwan(w, converter.Options{PPQN: 480, Program: 12})

	events := w.Events()
	if len(events) != WSChannels {
		t.Fatalf("got %d events, want %d", len(events), WSChannels)
	}
	for i, ev := range events {
		want := converter.Event{Kind: converter.KindProgramChange, Channel: uint8(i), Data1: 12}
		if ev != want {
			t.Errorf("event %d = %+v, want %+v", i, ev, want)
		}
	}
}

func TestWonderSwanRegisters(t *testing.T) {
	ws, w := newChip(t)

	ws.WritePort(0x02, 0x34)
	ws.WritePort(0x03, 0xFD) // only the low 3 bits are used
	if got := ws.Period(1); got != 0x534 {
		t.Errorf("Period(1) = 0x%X, want 0x534", got)
	}
	if got := ws.Register(0x83); got != 0xFD {
		t.Errorf("Register(0x83) = 0x%X, want 0xFD", got)
	}

	ws.WritePort(0x0A, 0xA5)
	if l, r := ws.Volume(2); l != 10 || r != 5 {
		t.Errorf("Volume(2) = %d, %d, want 10, 5", l, r)
	}

	ws.WritePort(0x10, 0x0A)
	for ch, want := range []bool{false, true, false, true} {
		if got := ws.Enabled(ch); got != want {
			t.Errorf("Enabled(%d) = %t, want %t", ch, got, want)
		}
	}

	// Ports past the sound block are stored but do nothing
	ws.WritePort(0x90, 0xFF)
	if got := ws.Register(0x10); got != 0xFF {
		t.Errorf("Register(0x10) = 0x%X, want 0xFF", got)
	}

	// Channel 1 is enabled but silent, channel 3 has no volume
	if n := len(noteEvents(w)); n != 0 {
		t.Errorf("got %d note events, want 0", n)
	}
}

func TestWonderSwanNoteOnOff(t *testing.T) {
	ws, w := newChip(t)

	play(ws)
	if n, ok := ws.SoundingNote(0); !ok || n != 66 {
		t.Errorf("SoundingNote(0) = %d, %t, want 66, true", n, ok)
	}

	ws.AdvanceTime(44100)
	ws.WritePort(0x10, 0x00)
	if _, ok := ws.SoundingNote(0); ok {
		t.Error("channel 0 still sounding after disable")
	}

	want := []converter.Event{
		{Tick: 0, Kind: converter.KindNoteOn, Channel: 0, Data1: 66, Data2: 127},
		{Tick: 960, Kind: converter.KindNoteOff, Channel: 0, Data1: 66},
	}
	got := noteEvents(w)
	if len(got) != len(want) {
		t.Fatalf("events = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWonderSwanVolumeZeroStopsNote(t *testing.T) {
	ws, w := newChip(t)
	play(ws)

	ws.AdvanceTime(735)
	ws.WritePort(0x08, 0x00)

	got := noteEvents(w)
	if len(got) != 2 || got[1].Kind != converter.KindNoteOff || got[1].Tick != 16 {
		t.Errorf("events = %+v, want a note off at tick 16", got)
	}
}

func TestWonderSwanLegato(t *testing.T) {
	ws, w := newChip(t)
	play(ws)

	ws.AdvanceTime(22050)
	ws.WritePort(0x00, 0x80) // period 1920

	got := noteEvents(w)[1:]
	want := []converter.Event{
		{Tick: 480, Kind: converter.KindNoteOff, Channel: 0, Data1: 66},
		{Tick: 480, Kind: converter.KindNoteOn, Channel: 0, Data1: 78, Data2: 127},
	}
	if len(got) != len(want) {
		t.Fatalf("events = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWonderSwanExpression(t *testing.T) {
	ws, w := newChip(t)
	play(ws)

	ws.WritePort(0x08, 0xF0) // max(15, 0) is unchanged
	ws.WritePort(0x08, 0x88)

	got := noteEvents(w)[1:]
	want := converter.Event{Kind: converter.KindControlChange, Channel: 0, Data1: ExpressionCC, Data2: 105}
	if len(got) != 1 || got[0] != want {
		t.Errorf("events = %+v, want [%+v]", got, want)
	}
}

func TestWonderSwanOutputControlIdempotent(t *testing.T) {
	ws, w := newChip(t)
	play(ws)
	before := len(w.Events())

	ws.WritePort(0x11, 0x0F)
	ws.WritePort(0x10, 0x01)
	ws.WritePort(0x01, 0x07)

	if after := len(w.Events()); after != before {
		t.Errorf("re-evaluating unchanged channels added %d events", after-before)
	}
}

func TestWonderSwanChannelsIndependent(t *testing.T) {
	ws, w := newChip(t)

	ws.WritePort(0x06, 0x00)
	ws.WritePort(0x07, 0x06) // channel 3, period 1536
	ws.WritePort(0x0B, 0x0F)
	ws.WritePort(0x10, 0x08)

	got := noteEvents(w)
	want := converter.Event{Kind: converter.KindNoteOn, Channel: 3, Data1: 54, Data2: 127}
	if len(got) != 1 || got[0] != want {
		t.Errorf("events = %+v, want [%+v]", got, want)
	}
	if _, ok := ws.SoundingNote(0); ok {
		t.Error("channel 0 should be silent")
	}
}

func TestWonderSwanLogs(t *testing.T) {
	var lines int
	w := converter.NewMIDIWriter(480)
	ws := NewWonderSwan(w, converter.Options{PPQN: 480, Program: 80, Logger: countingLogger{&lines}})
	play(ws)
	if lines < 5 {
		t.Errorf("logged %d lines, want a line per write and per note", lines)
	}
}

type countingLogger struct{ n *int }

func (c countingLogger) Logf(category, format string, args ...any) { *c.n++ }

func wsVGM(cmds ...byte) []byte {
	header := make([]byte, converter.VGMMinHeaderSize)
	copy(header, "Vgm ")
	binary.LittleEndian.PutUint32(header[0x34:0x38], 0x0C)
	return append(header, cmds...)
}

func TestWonderSwanDevice(t *testing.T) {
	d := NewWonderSwanDevice()
	if d.ID() != "wonderswan" {
		t.Errorf("ID() = %q, want %q", d.ID(), "wonderswan")
	}
	if d.Name() != "Bandai WonderSwan" {
		t.Errorf("Name() = %q", d.Name())
	}
}

func TestConvertSingleNote(t *testing.T) {
	data := wsVGM(
		0xB3, 0x00, 0x00,
		0xB3, 0x01, 0x07,
		0xB3, 0x08, 0xFF,
		0xB3, 0x10, 0x01,
		0x61, 0x44, 0xAC,
		0xB3, 0x10, 0x00,
		0x66,
	)

	res, err := converter.New(NewWonderSwanDevice()).Convert(data)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	want := []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 0, 0, 1, 0x01, 0xE0,
		'M', 'T', 'r', 'k', 0, 0, 0, 25,
		0x00, 0xC0, 0x50,
		0x00, 0xC1, 0x50,
		0x00, 0xC2, 0x50,
		0x00, 0xC3, 0x50,
		0x00, 0x90, 0x42, 0x7F,
		0x87, 0x40, 0x80, 0x42, 0x00,
		0x00, 0xFF, 0x2F, 0x00,
	}
	if !bytes.Equal(res.MIDI, want) {
		t.Errorf("MIDI =\n% X\nwant\n% X", res.MIDI, want)
	}
	if res.Events != 6 {
		t.Errorf("Events = %d, want 6", res.Events)
	}

	sum, err := converter.InspectMIDI(res.MIDI, false)
	if err != nil {
		t.Fatalf("InspectMIDI() error = %v", err)
	}
	if sum.NoteOns != 1 || sum.TotalTicks != 960 {
		t.Errorf("summary = %d note ons over %d ticks, want 1 over 960", sum.NoteOns, sum.TotalTicks)
	}
}

func TestConvertPPQNOption(t *testing.T) {
	data := wsVGM(
		0xB3, 0x01, 0x07,
		0xB3, 0x08, 0x11,
		0xB3, 0x10, 0x01,
		0x61, 0x44, 0xAC,
		0xB3, 0x10, 0x00,
	)

	res, err := converter.New(NewWonderSwanDevice(), converter.WithPPQN(96), converter.WithProgram(0)).Convert(data)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	sum, err := converter.InspectMIDI(res.MIDI, true)
	if err != nil {
		t.Fatalf("InspectMIDI() error = %v", err)
	}
	if sum.Resolution != 96 || sum.TotalTicks != 192 {
		t.Errorf("resolution %d, %d ticks; want 96, 192", sum.Resolution, sum.TotalTicks)
	}
	if ev := sum.Events[4]; ev.Kind != "NoteOn" || ev.Data2 != 56 {
		t.Errorf("Events[4] = %+v, want a note on at velocity 56", ev)
	}
	if ev := sum.Events[0]; ev.Kind != "ProgramChange" || ev.Data1 != 0 {
		t.Errorf("Events[0] = %+v, want program 0", ev)
	}
	if res.Stats.Truncated || res.Stats.Ended {
		t.Errorf("Stats = %+v, want a clean run to the end of data", res.Stats)
	}
}

func TestConvertRejectsShortFile(t *testing.T) {
	_, err := converter.New(NewWonderSwanDevice()).Convert([]byte("Vgm "))
	if !errors.Is(err, converter.ErrInvalidVGM) {
		t.Errorf("Convert() error = %v, want ErrInvalidVGM", err)
	}
}

package converter

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func sampleMIDI(t *testing.T) []byte {
	t.Helper()
	w := NewMIDIWriter(480)
	for ch := uint8(0); ch < 4; ch++ {
		w.ProgramChange(ch, 80, 0)
	}
	w.NoteOn(0, 66, 127, 0)
	w.NoteOn(2, 54, 100, 240)
	w.ControlChange(2, 11, 90, 300)
	w.NoteOff(0, 66, 960)
	w.NoteOff(2, 54, 1200)
	return writerBytes(t, w)
}

func TestInspectMIDI(t *testing.T) {
	sum, err := InspectMIDI(sampleMIDI(t), false)
	if err != nil {
		t.Fatalf("InspectMIDI() error = %v", err)
	}

	if sum.Format != 0 || sum.Tracks != 1 || sum.Resolution != 480 {
		t.Errorf("header = format %d, %d tracks, %d ticks/qn; want 0, 1, 480", sum.Format, sum.Tracks, sum.Resolution)
	}
	if sum.NoteOns != 2 {
		t.Errorf("NoteOns = %d, want 2", sum.NoteOns)
	}
	if len(sum.Channels) != 2 || sum.Channels[0] != 0 || sum.Channels[1] != 2 {
		t.Errorf("Channels = %v, want [0 2]", sum.Channels)
	}
	if sum.MinNote != 54 || sum.MaxNote != 66 {
		t.Errorf("pitch range = %d-%d, want 54-66", sum.MinNote, sum.MaxNote)
	}
	if sum.TotalTicks != 1200 {
		t.Errorf("TotalTicks = %d, want 1200", sum.TotalTicks)
	}
	if sum.Events != nil {
		t.Errorf("Events = %v, want none without withEvents", sum.Events)
	}
}

func TestInspectMIDIEvents(t *testing.T) {
	sum, err := InspectMIDI(sampleMIDI(t), true)
	if err != nil {
		t.Fatalf("InspectMIDI() error = %v", err)
	}
	if len(sum.Events) != 9 {
		t.Fatalf("len(Events) = %d, want 9", len(sum.Events))
	}

	cc := sum.Events[6]
	want := TrackEvent{Tick: 300, Kind: "ControlChange", Channel: 2, Data1: 11, Data2: 90}
	if cc != want {
		t.Errorf("Events[6] = %+v, want %+v", cc, want)
	}
}

func TestInspectMIDIInvalid(t *testing.T) {
	if _, err := InspectMIDI([]byte("not a midi file"), false); err == nil {
		t.Error("InspectMIDI() should fail on garbage")
	}
}

func TestInspectMIDIFileMissing(t *testing.T) {
	_, err := InspectMIDIFile(filepath.Join(t.TempDir(), "none.mid"), false)
	var ioe *IOError
	if !errors.As(err, &ioe) {
		t.Errorf("InspectMIDIFile() error = %v, want *IOError", err)
	}
}

func TestWriteSummary(t *testing.T) {
	sum, err := InspectMIDI(sampleMIDI(t), true)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteSummary(&buf, sum); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Format: 0, Tracks: 1, Ticks/QN: 480",
		"Note ons: 2",
		"Channels: [0 2]",
		"Pitch range: 54-66",
		"Total ticks: 1200",
		"NoteOn",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestHexDump(t *testing.T) {
	data := make([]byte, 18)
	for i := range data {
		data[i] = byte(i)
	}

	var buf bytes.Buffer
	if err := HexDump(&buf, data); err != nil {
		t.Fatalf("HexDump() error = %v", err)
	}

	want := "00000000: 00 01 02 03 04 05 06 07 08 09 0a 0b 0c 0d 0e 0f \n" +
		"00000010: 10 11 \n"
	if got := buf.String(); got != want {
		t.Errorf("HexDump() =\n%q\nwant\n%q", got, want)
	}
}

func TestHexDumpEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := HexDump(&buf, nil); err != nil {
		t.Fatalf("HexDump() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("HexDump(nil) wrote %q", buf.String())
	}
}

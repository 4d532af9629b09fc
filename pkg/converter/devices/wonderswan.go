// Package devices provides device-specific chip models
package devices

import (
	"math"

	"github.com/james-see/wonderswan2midi/pkg/converter"
)

// WonderSwan sound chip constants
const (
	WSChannels    = 4
	WSClock       = 3072000 // Hz
	WSPortBase    = 0x80    // VGM port 0 maps to I/O address 0x80
	WSMaxPeriod   = 2048
	WSMaxVolume   = 15
	ExpressionCC  = 11
	velocityCurve = 0.3
)

// WonderSwan I/O addresses
const (
	regPeriodBase = 0x80 // 0x80-0x87, low/high pairs per channel
	regVolumeBase = 0x88 // 0x88-0x8B, left<<4 | right
	regChannelCtl = 0x90 // bit n enables channel n
	regOutputCtl  = 0x91
)

const noNote = -1

type channel struct {
	period       int
	volumeLeft   int
	volumeRight  int
	enabled      bool
	lastNote     int // noNote when silent
	lastVelocity int // noNote when silent
}

// WonderSwanDevice implements converter.Device for the WonderSwan
type WonderSwanDevice struct{}

// NewWonderSwanDevice creates a new WonderSwan device handler
func NewWonderSwanDevice() *WonderSwanDevice {
	return &WonderSwanDevice{}
}

// Name returns the device name
func (d *WonderSwanDevice) Name() string {
	return "Bandai WonderSwan"
}

// ID returns the short device identifier
func (d *WonderSwanDevice) ID() string {
	return "wonderswan"
}

// NewChip builds a chip model that reports to sink
func (d *WonderSwanDevice) NewChip(sink converter.EventSink, opts converter.Options) converter.Chip {
	return NewWonderSwan(sink, opts)
}

// WonderSwan models the sound registers of the WonderSwan and turns
// register writes into note events
type WonderSwan struct {
	sink     converter.EventSink
	logger   converter.Logger
	ppqn     uint16
	regs     [256]uint8
	channels [WSChannels]channel
	samples  uint32
}

// NewWonderSwan creates a chip model and sends the initial program change
// for every channel at tick 0
func NewWonderSwan(sink converter.EventSink, opts converter.Options) *WonderSwan {
	if opts.PPQN == 0 {
		opts.PPQN = converter.DefaultPPQN
	}
	ws := &WonderSwan{
		sink:   sink,
		logger: opts.Logger,
		ppqn:   opts.PPQN,
	}
	for i := range ws.channels {
		ws.channels[i].lastNote = noNote
		ws.channels[i].lastVelocity = noNote
	}

	for ch := uint8(0); ch < WSChannels; ch++ {
		sink.ProgramChange(ch, opts.Program, 0)
	}
	return ws
}

// AdvanceTime moves the sample clock forward
func (ws *WonderSwan) AdvanceTime(samples uint32) {
	ws.samples += samples
}

// Samples returns the current sample clock
func (ws *WonderSwan) Samples() uint32 {
	return ws.samples
}

// Tick returns the current sample clock in MIDI ticks
func (ws *WonderSwan) Tick() uint32 {
	return SamplesToTicks(ws.samples, ws.ppqn)
}

// Register returns the value last written to an I/O address
func (ws *WonderSwan) Register(addr uint8) uint8 {
	return ws.regs[addr]
}

// Period returns the 11-bit period of a channel
func (ws *WonderSwan) Period(ch int) int {
	return ws.channels[ch].period
}

// Volume returns the left and right volume of a channel
func (ws *WonderSwan) Volume(ch int) (left, right int) {
	return ws.channels[ch].volumeLeft, ws.channels[ch].volumeRight
}

// Enabled reports whether a channel is enabled
func (ws *WonderSwan) Enabled(ch int) bool {
	return ws.channels[ch].enabled
}

// SoundingNote returns the note a channel is playing, if any
func (ws *WonderSwan) SoundingNote(ch int) (int, bool) {
	n := ws.channels[ch].lastNote
	return n, n != noNote
}

// WritePort stores a register write and updates the affected channels
func (ws *WonderSwan) WritePort(port, value uint8) {
	addr := port + WSPortBase
	ws.regs[addr] = value
	ws.logf("write", "t=%d port=0x%02X addr=0x%02X value=0x%02X", ws.samples, port, addr, value)

	switch {
	case addr >= regPeriodBase && addr < regVolumeBase:
		ch := int(addr-regPeriodBase) / 2
		lo := ws.regs[regPeriodBase+ch*2]
		hi := ws.regs[regPeriodBase+ch*2+1] & 0x07
		ws.channels[ch].period = int(hi)<<8 | int(lo)
		ws.update(ch)

	case addr >= regVolumeBase && addr < regVolumeBase+WSChannels:
		ch := int(addr - regVolumeBase)
		ws.channels[ch].volumeLeft = int(value>>4) & 0x0F
		ws.channels[ch].volumeRight = int(value) & 0x0F
		ws.update(ch)

	case addr == regChannelCtl:
		for ch := range ws.channels {
			ws.channels[ch].enabled = value&(1<<ch) != 0
		}
		ws.updateAll()

	case addr == regOutputCtl:
		ws.updateAll()
	}
}

func (ws *WonderSwan) updateAll() {
	for ch := range ws.channels {
		ws.update(ch)
	}
}

// update runs the note transition for one channel
func (ws *WonderSwan) update(ch int) {
	c := &ws.channels[ch]
	isOn := c.enabled && (c.volumeLeft > 0 || c.volumeRight > 0)
	wasOn := c.lastNote != noNote

	pitch := PeriodToNote(c.period)
	velocity := VolumeToVelocity(max(c.volumeLeft, c.volumeRight))
	tick := ws.Tick()
	mc := uint8(ch)

	switch {
	case isOn && !wasOn:
		ws.sink.NoteOn(mc, uint8(pitch), uint8(velocity), tick)
		ws.logf("note", "tick=%d ch=%d on note=%d vel=%d", tick, ch, pitch, velocity)
		c.lastNote = pitch
		c.lastVelocity = velocity

	case !isOn && wasOn:
		ws.sink.NoteOff(mc, uint8(c.lastNote), tick)
		ws.logf("note", "tick=%d ch=%d off note=%d", tick, ch, c.lastNote)
		c.lastNote = noNote
		c.lastVelocity = noNote

	case isOn && wasOn && pitch != c.lastNote:
		// Legato: retrigger at the same tick
		ws.sink.NoteOff(mc, uint8(c.lastNote), tick)
		ws.sink.NoteOn(mc, uint8(pitch), uint8(velocity), tick)
		ws.logf("note", "tick=%d ch=%d legato %d -> %d vel=%d", tick, ch, c.lastNote, pitch, velocity)
		c.lastNote = pitch
		c.lastVelocity = velocity

	case isOn && wasOn && velocity != c.lastVelocity:
		ws.sink.ControlChange(mc, ExpressionCC, uint8(velocity), tick)
		ws.logf("note", "tick=%d ch=%d expression %d", tick, ch, velocity)
		c.lastVelocity = velocity
	}
}

func (ws *WonderSwan) logf(category, format string, args ...any) {
	if ws.logger != nil {
		ws.logger.Logf(category, format, args...)
	}
}

// PeriodToNote converts an 11-bit channel period to a MIDI note number.
// The result is not clamped to 0-127; periods of 2048 and above give 0.
func PeriodToNote(period int) int {
	if period >= WSMaxPeriod {
		return 0
	}
	freq := (WSClock / float64(WSMaxPeriod-period)) / 32.0
	if freq <= 0 {
		return 0
	}
	return int(math.Round(69 + 12*math.Log2(freq/440.0)))
}

// VolumeToVelocity maps a 4-bit volume to a MIDI velocity on a curve
// that lifts quiet volumes
func VolumeToVelocity(volume int) int {
	if volume <= 0 {
		return 0
	}
	normalized := float64(min(volume, WSMaxVolume)) / WSMaxVolume
	velocity := int(math.Round(math.Pow(normalized, velocityCurve) * 127.0))
	return min(velocity, 127)
}

// SamplesToTicks converts a 44100 Hz sample clock to MIDI ticks at the
// nominal tempo of 120 BPM
func SamplesToTicks(samples uint32, ppqn uint16) uint32 {
	ticks := float64(samples) * float64(ppqn) * converter.DefaultTempo / (converter.SampleRate * 60.0)
	return uint32(math.Round(ticks))
}

// Package converter provides conversion from WonderSwan VGM dumps to MIDI
package converter

// EventKind is the MIDI status nibble of an event
type EventKind uint8

const (
	KindNoteOff       EventKind = 0x80
	KindNoteOn        EventKind = 0x90
	KindControlChange EventKind = 0xB0
	KindProgramChange EventKind = 0xC0
)

// String returns a short human readable name for the kind
func (k EventKind) String() string {
	switch k {
	case KindNoteOff:
		return "NoteOff"
	case KindNoteOn:
		return "NoteOn"
	case KindControlChange:
		return "ControlChange"
	case KindProgramChange:
		return "ProgramChange"
	default:
		return "Unknown"
	}
}

// IsNote reports whether the kind is a NoteOn or NoteOff
func (k EventKind) IsNote() bool {
	return k == KindNoteOn || k == KindNoteOff
}

// Event is a single time-stamped channel message
type Event struct {
	Tick    uint32 // Absolute tick
	Kind    EventKind
	Channel uint8 // 0-3
	Data1   uint8 // Note, program or controller
	Data2   uint8 // Velocity or value
}

// Status returns the status byte of the event
func (e Event) Status() uint8 {
	return uint8(e.Kind) | (e.Channel & 0x0F)
}

// EventSink receives MIDI-level events from a chip model
type EventSink interface {
	NoteOn(channel, note, velocity uint8, tick uint32)
	NoteOff(channel, note uint8, tick uint32)
	ProgramChange(channel, program uint8, tick uint32)
	ControlChange(channel, controller, value uint8, tick uint32)
}

// Chip is a sound chip model driven by the VGM command stream
type Chip interface {
	AdvanceTime(samples uint32)
	WritePort(port, value uint8)
}

// Device builds chip models for one kind of sound chip
type Device interface {
	Name() string
	ID() string
	NewChip(sink EventSink, opts Options) Chip
}

// Logger is an optional diagnostics sink
type Logger interface {
	Logf(category, format string, args ...any)
}

// Default conversion settings
const (
	DefaultPPQN    = 480
	DefaultTempo   = 120.0
	DefaultProgram = 80 // GM "Lead 1 (square)", 0-based
	SampleRate     = 44100
)

// Options configures a conversion
type Options struct {
	PPQN    uint16
	Program uint8
	Logger  Logger
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		PPQN:    DefaultPPQN,
		Program: DefaultProgram,
	}
}

// Option modifies Options
type Option func(*Options)

// WithPPQN sets the MIDI division in pulses per quarter note
func WithPPQN(ppqn uint16) Option {
	return func(o *Options) {
		if ppqn > 0 {
			o.PPQN = ppqn
		}
	}
}

// WithProgram sets the program sent to every channel at tick 0
func WithProgram(program uint8) Option {
	return func(o *Options) {
		o.Program = program & 0x7F
	}
}

// WithLogger attaches a debug logger
func WithLogger(l Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// Converter handles format conversions
type Converter struct {
	device Device
	opts   Options
}

// New creates a new Converter with the specified device
func New(device Device, opts ...Option) *Converter {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Converter{device: device, opts: o}
}

// GetDevice returns the current device
func (c *Converter) GetDevice() Device {
	return c.device
}

// SetDevice sets the device for conversion
func (c *Converter) SetDevice(device Device) {
	c.device = device
}

// Options returns the resolved conversion options
func (c *Converter) Options() Options {
	return c.opts
}

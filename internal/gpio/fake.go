package gpio

// Segment is a stretch of constant line level in simulated time.
// Raw is the value the fake library reports, so tests can inject values
// outside {0, 1}.
type Segment struct {
	Raw   int
	Ticks int
}

// SimLine is a test double that replays scripted waveforms.
// Simulated time only advances through DelayMicroseconds (one tick per
// microsecond), so pulse widths measured against it are exact.
type SimLine struct {
	// Waveforms contains the line response for successive reads.
	// Each switch to Input mode starts the next waveform; once exhausted
	// the last waveform is replayed.
	Waveforms [][]Segment

	// Idle is the raw level once a waveform has ended (pull-up keeps it high).
	Idle int

	// ReadError, if set, will be returned by Read.
	ReadError error

	// Modes and Writes record every SetMode and Write call.
	Modes  []Mode
	Writes []Level

	// DelayedMillis accumulates DelayMilliseconds calls.
	DelayedMillis int

	// Reads counts calls to Read.
	Reads int

	// Closed tracks if Close was called.
	Closed bool

	mode    Mode
	driven  Level
	current []Segment
	index   int
	now     int
}

// NewSimLine creates a SimLine idling high with the given waveforms.
func NewSimLine(waveforms ...[]Segment) *SimLine {
	return &SimLine{Waveforms: waveforms, Idle: int(High)}
}

// SetMode records the mode. Entering Input starts the next waveform at tick 0.
func (s *SimLine) SetMode(m Mode) error {
	s.Modes = append(s.Modes, m)
	s.mode = m
	if m == Input {
		s.now = 0
		s.current = nil
		if len(s.Waveforms) > 0 {
			s.current = s.Waveforms[s.index]
			if s.index < len(s.Waveforms)-1 {
				s.index++
			}
		}
	}
	return nil
}

// Write records the driven level.
func (s *SimLine) Write(l Level) error {
	s.Writes = append(s.Writes, l)
	s.driven = l
	return nil
}

// Read returns the driven level in Output mode, otherwise the scripted level
// at the current tick.
func (s *SimLine) Read() (Level, error) {
	s.Reads++
	if s.ReadError != nil {
		return Low, s.ReadError
	}
	if s.mode == Output {
		return s.driven, nil
	}
	return LevelFromRaw(s.rawAt(s.now))
}

func (s *SimLine) rawAt(tick int) int {
	end := 0
	for _, seg := range s.current {
		end += seg.Ticks
		if tick < end {
			return seg.Raw
		}
	}
	return s.Idle
}

// DelayMilliseconds records the delay without sleeping.
func (s *SimLine) DelayMilliseconds(n int) {
	s.DelayedMillis += n
	s.now += n * 1000
}

// DelayMicroseconds advances simulated time by n ticks.
func (s *SimLine) DelayMicroseconds(n int) {
	s.now += n
}

// Close marks the line as closed.
func (s *SimLine) Close() error {
	s.Closed = true
	return nil
}

// Reset rewinds the line to the first waveform and clears recorded calls.
func (s *SimLine) Reset() {
	s.Modes = nil
	s.Writes = nil
	s.DelayedMillis = 0
	s.Reads = 0
	s.Closed = false
	s.mode = Input
	s.current = nil
	s.index = 0
	s.now = 0
}

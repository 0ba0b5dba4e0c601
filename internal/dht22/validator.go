package dht22

// Checksum returns the low byte of the sum of the four data bytes.
func Checksum(f Frame) byte {
	return f[0] + f[1] + f[2] + f[3]
}

// NewFrame builds a frame from four data bytes with a valid checksum.
func NewFrame(b0, b1, b2, b3 byte) Frame {
	f := Frame{b0, b1, b2, b3}
	f[4] = Checksum(f)
	return f
}

// Validate accepts a frame only if all 40 bits were captured and the checksum
// holds. No partial reading is ever produced.
func Validate(f Frame, bits int) Result {
	r := Result{Frame: f, Bits: bits}

	if bits < FrameBits {
		r.Outcome = Incomplete
		return r
	}
	if f[4] != Checksum(f) {
		r.Outcome = ChecksumMismatch
		return r
	}

	r.Outcome = Success
	r.Reading = f.Reading()
	return r
}

// Reading converts the frame payload into physical values.
// Humidity is big-endian tenths of a percent. Temperature is tenths of a
// degree with bit 7 of byte 2 as a sign flag (not two's complement).
// The checksum is not checked here; use Validate.
func (f Frame) Reading() Reading {
	humidity := float64(uint16(f[0])<<8|uint16(f[1])) / 10.0

	temperature := float64(uint16(f[2]&0x7F)<<8|uint16(f[3])) / 10.0
	if f[2]&0x80 != 0 {
		temperature = -temperature
	}

	return Reading{Humidity: humidity, Temperature: temperature}
}

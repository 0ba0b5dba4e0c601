package dht22

// Decode rebuilds a frame from sampled pulses and returns it with the number
// of bits captured.
//
// The first t.Preamble transitions are the handshake. After that every even
// transition is the high half of a data bit (odd ones are the fixed low
// separators): a width above t.BitThreshold is a 1. Bits are shifted in
// MSB-first. Anything past FrameBits is ignored.
func Decode(pulses []Pulse, t Timing) (Frame, int) {
	var f Frame
	bits := 0
	for _, p := range pulses {
		if p.Index < t.Preamble || p.Index%2 != 0 {
			continue
		}
		if bits == FrameBits {
			break
		}
		f[bits/8] <<= 1
		if p.Width > t.BitThreshold {
			f[bits/8] |= 1
		}
		bits++
	}
	return f, bits
}

package dht22

import "github.com/sweeney/dht22-sensor/internal/gpio"

// WaveTiming describes the sensor's response in polling ticks.
type WaveTiming struct {
	Release      int // line floats high after the host lets go
	ResponseLow  int // sensor acknowledges low
	ResponseHigh int // then high before the first bit
	BitLow       int // low separator before each bit and after the last
	Zero         int // high width of a 0 bit
	One          int // high width of a 1 bit
}

// DefaultWaveTiming approximates what a Raspberry Pi polling loop sees,
// at roughly 3µs per tick.
func DefaultWaveTiming() WaveTiming {
	return WaveTiming{
		Release:      7,
		ResponseLow:  27,
		ResponseHigh: 27,
		BitLow:       17,
		Zero:         9,
		One:          24,
	}
}

// Waveform returns the line segments a sensor drives when sending f.
// After the final separator the line idles high.
func Waveform(f Frame, wt WaveTiming) []gpio.Segment {
	segs := []gpio.Segment{
		{Raw: int(gpio.High), Ticks: wt.Release},
		{Raw: int(gpio.Low), Ticks: wt.ResponseLow},
		{Raw: int(gpio.High), Ticks: wt.ResponseHigh},
	}

	for i := 0; i < FrameBits; i++ {
		high := wt.Zero
		if f[i/8]&(0x80>>(i%8)) != 0 {
			high = wt.One
		}
		segs = append(segs,
			gpio.Segment{Raw: int(gpio.Low), Ticks: wt.BitLow},
			gpio.Segment{Raw: int(gpio.High), Ticks: high},
		)
	}

	return append(segs, gpio.Segment{Raw: int(gpio.Low), Ticks: wt.BitLow})
}

package gpio

import "fmt"

// DefaultPin is wiringPi pin 7, which is BCM GPIO 4 on every Pi header.
const DefaultPin = 7

// Pin numbering schemes.
const (
	NumberingWiringPi = "wiringpi"
	NumberingBCM      = "bcm"
)

// wiringPiToBCM maps wiringPi pin numbers to BCM GPIO numbers
// (board revision 2 and later).
var wiringPiToBCM = map[int]int{
	0: 17, 1: 18, 2: 27, 3: 22, 4: 23, 5: 24, 6: 25, 7: 4,
	8: 2, 9: 3, 10: 8, 11: 7, 12: 10, 13: 9, 14: 11, 15: 14, 16: 15,
	21: 5, 22: 6, 23: 13, 24: 19, 25: 26, 26: 12, 27: 16,
	28: 20, 29: 21, 30: 0, 31: 1,
}

// WiringPiToBCM translates a wiringPi pin number into a BCM GPIO number.
func WiringPiToBCM(pin int) (int, error) {
	bcm, ok := wiringPiToBCM[pin]
	if !ok {
		return 0, fmt.Errorf("gpio: no BCM mapping for wiringPi pin %d", pin)
	}
	return bcm, nil
}

// ResolvePin converts a pin in the given numbering scheme into a BCM number.
func ResolvePin(numbering string, pin int) (int, error) {
	switch numbering {
	case NumberingWiringPi, "":
		return WiringPiToBCM(pin)
	case NumberingBCM:
		if pin < 0 {
			return 0, fmt.Errorf("gpio: invalid BCM pin %d", pin)
		}
		return pin, nil
	}
	return 0, fmt.Errorf("gpio: unknown pin numbering %q", numbering)
}

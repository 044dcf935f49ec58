package note

import "math"

// Piano keyboard tuning reference: key 49 is A4
const (
	ReferenceKey       = 49
	ReferenceFrequency = 440.0
)

// Register offsets added to KeyboardNote; root lands on C2, relative on C4
const (
	RootRegisterOffset     = 15
	RelativeRegisterOffset = 39
)

// KeyboardFrequency returns the equal-tempered frequency of piano key n
func KeyboardFrequency(n int) float64 {
	return ReferenceFrequency * math.Pow(2, float64(n-ReferenceKey)/12.0)
}

// RootFrequency returns the fundamental of the degree in the low root register
func RootFrequency(n Note) float64 {
	return KeyboardFrequency(n.KeyboardNote() + RootRegisterOffset)
}

// RelativeFrequency returns the degree's frequency in the interval register
func RelativeFrequency(n Note) float64 {
	return KeyboardFrequency(n.KeyboardNote() + RelativeRegisterOffset)
}

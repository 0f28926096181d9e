package speed

import "math"

// MaxRaw is the full scale value of an analog join.
const MaxRaw = 65535

const maxPercentage = 100

// Mapper converts fan speed percentage to analog join values and back.
// Steps == 0 means stepless control. Halfway values round to even.
type Mapper struct {
	Steps int
}

func (m Mapper) Stepped() bool {
	return m.Steps > 0
}

func (m Mapper) SpeedCount() int {
	if m.Stepped() {
		return m.Steps
	}
	return maxPercentage
}

// PercentageStep is the percentage distance between two adjacent speeds.
func (m Mapper) PercentageStep() float64 {
	return maxPercentage / float64(m.SpeedCount())
}

// DefaultOnPercentage is used when the fan is turned on without a speed.
// It is never 0, so turning on never turns the fan off.
func (m Mapper) DefaultOnPercentage() int {
	if !m.Stepped() {
		return 1
	}
	return int(math.Max(1, math.RoundToEven(maxPercentage/float64(m.Steps))))
}

// Encode returns the analog value for percentage p.
func (m Mapper) Encode(p int) uint16 {
	if p <= 0 {
		return 0
	}
	if p > maxPercentage {
		p = maxPercentage
	}

	if m.Stepped() {
		steps := float64(m.Steps)
		step := clamp(math.RoundToEven(float64(p)/maxPercentage*steps), 1, steps)
		return uint16(math.RoundToEven(step * MaxRaw / steps))
	}

	return uint16(math.RoundToEven(float64(p) / maxPercentage * MaxRaw))
}

// Decode returns the percentage reported for analog value raw.
// Any nonzero value decodes to at least 1%.
func (m Mapper) Decode(raw uint16) int {
	if raw == 0 {
		return 0
	}

	if m.Stepped() {
		steps := float64(m.Steps)
		stepSize := MaxRaw / steps
		step := clamp(math.RoundToEven(float64(raw)/stepSize), 1, steps)
		return int(math.Max(1, math.RoundToEven(step/steps*maxPercentage)))
	}

	return int(clamp(math.RoundToEven(float64(raw)/MaxRaw*maxPercentage), 1, maxPercentage))
}

func (m Mapper) IsOn(raw uint16) bool {
	return m.Decode(raw) > 0
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

package binder

import (
	"fmt"
	"regexp"
	"strconv"

	"carsim/internal/vehicle"
)

// PartitionRule assigns a mesh name to a wheel, or reports false to leave the
// mesh on the chassis.
type PartitionRule func(meshName string) (vehicle.WheelLabel, bool)

// IndexRange is an inclusive range of mesh indices.
type IndexRange struct {
	Min, Max int
}

// Contains reports whether i lies in r.
func (r IndexRange) Contains(i int) bool {
	return i >= r.Min && i <= r.Max
}

// DefaultRanges split the stock car model's polySurface meshes into wheels.
var DefaultRanges = [vehicle.WheelCount]IndexRange{
	vehicle.FrontLeft:  {1, 245},
	vehicle.FrontRight: {246, 490},
	vehicle.RearLeft:   {491, 746},
	vehicle.RearRight:  {747, 1002},
}

// DefaultPattern matches mesh names such as "polySurface12" or "polySurface12_3".
var DefaultPattern = regexp.MustCompile(`^polySurface(\d+)`)

// DefaultRule is RangeRule(DefaultPattern, DefaultRanges).
func DefaultRule() PartitionRule {
	rule, err := RangeRule(DefaultPattern, DefaultRanges)
	if err != nil {
		panic(err)
	}
	return rule
}

// RangeRule returns a rule that takes the first capture group of pattern as a
// decimal index and looks it up in ranges. Ranges must be non-empty and must not overlap.
func RangeRule(pattern *regexp.Regexp, ranges [vehicle.WheelCount]IndexRange) (PartitionRule, error) {
	if pattern == nil {
		return nil, fmt.Errorf("binder: nil pattern")
	}
	if pattern.NumSubexp() < 1 {
		return nil, fmt.Errorf("binder: pattern %q has no capture group", pattern)
	}
	for i, r := range ranges {
		if r.Min > r.Max {
			return nil, fmt.Errorf("binder: range %s is empty (%d..%d)", vehicle.WheelLabel(i), r.Min, r.Max)
		}
		for j := i + 1; j < len(ranges); j++ {
			o := ranges[j]
			if r.Min <= o.Max && o.Min <= r.Max {
				return nil, fmt.Errorf("binder: ranges %s and %s overlap", vehicle.WheelLabel(i), vehicle.WheelLabel(j))
			}
		}
	}
	return func(name string) (vehicle.WheelLabel, bool) {
		m := pattern.FindStringSubmatch(name)
		if m == nil {
			return 0, false
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		for _, l := range vehicle.WheelLabels {
			if ranges[l].Contains(idx) {
				return l, true
			}
		}
		return 0, false
	}, nil
}

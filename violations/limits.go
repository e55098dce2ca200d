package violations

import "roadcam/detection"

// DefaultSpeedLimitKPH applies when neither a calibration nor any user
// setting names a limit.
const DefaultSpeedLimitKPH = 20.0

// Limits resolves the effective speed limit for a vehicle class. Zero-value
// fields mean "not set". Resolution priority: calibration limit, then the
// per-class user setting, then the global user default, then the hardcoded
// default. The resolved limit is fixed at detection time.
type Limits struct {
	Calibration float64
	Bike        float64
	Car         float64
	Global      float64
}

// Effective returns the speed limit that applies to the given vehicle class.
func (l Limits) Effective(classLabel string) float64 {
	if l.Calibration > 0 {
		return l.Calibration
	}
	switch {
	case detection.IsBikeLike(classLabel):
		if l.Bike > 0 {
			return l.Bike
		}
	case detection.IsCarLike(classLabel):
		if l.Car > 0 {
			return l.Car
		}
	}
	if l.Global > 0 {
		return l.Global
	}
	return DefaultSpeedLimitKPH
}

package cozmo

// Device limits as reported by the Cozmo firmware.
// These are safety limits to prevent sending impossible commands to the robot.
const (
	MinHeadAngle = -0.4363 // radians (-25°)
	MaxHeadAngle = 0.7766  // radians (44.5°)

	MinLiftHeight = 32.0 // mm
	MaxLiftHeight = 92.0 // mm

	MaxWheelSpeed = 250.0 // mm/s
)

// clamp restricts v to the range [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampHeadAngle returns rad clamped to the head's physical range.
func ClampHeadAngle(rad float64) float64 {
	return clamp(rad, MinHeadAngle, MaxHeadAngle)
}

// ClampLiftHeight returns mm clamped to the lift's physical range.
func ClampLiftHeight(mm float64) float64 {
	return clamp(mm, MinLiftHeight, MaxLiftHeight)
}

// ClampWheelSpeed returns mmps clamped to [-MaxWheelSpeed, MaxWheelSpeed].
func ClampWheelSpeed(mmps float64) float64 {
	return clamp(mmps, -MaxWheelSpeed, MaxWheelSpeed)
}

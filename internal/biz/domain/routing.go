package domain

// OperatingMode controls how generated replies are routed
type OperatingMode string

const (
	ModeManual   OperatingMode = "manual"
	ModeSemiAuto OperatingMode = "semi_auto"
	ModeAuto     OperatingMode = "auto"
)

// ParseMode parses a mode string, falling back to manual
func ParseMode(s string) OperatingMode {
	switch OperatingMode(s) {
	case ModeSemiAuto, ModeAuto:
		return OperatingMode(s)
	}
	return ModeManual
}

// DefaultThreshold is the semi_auto threshold when none is configured
const DefaultThreshold = 80

// confidenceEpsilon absorbs float error in confidence*100 (0.8*100 = 80.00000000000001)
const confidenceEpsilon = 1e-9

// Route decides the initial status of a message. It has no side effects.
//
//	manual    -> pending
//	auto      -> auto_sent
//	semi_auto -> auto_sent iff confidence*100 >= threshold, else pending
func Route(mode OperatingMode, threshold int, confidence float64) MessageStatus {
	switch mode {
	case ModeAuto:
		return StatusAutoSent
	case ModeSemiAuto:
		if ClampConfidence(confidence)*100+confidenceEpsilon >= float64(threshold) {
			return StatusAutoSent
		}
		return StatusPending
	default:
		return StatusPending
	}
}

// RouteGeneration routes a generation result. Failed generations are always
// queued for a human regardless of mode.
func RouteGeneration(mode OperatingMode, threshold int, gen Generation) MessageStatus {
	if gen.Failed() {
		return StatusPending
	}
	return Route(mode, threshold, gen.Confidence)
}

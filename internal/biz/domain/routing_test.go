package domain

import "testing"

func TestRoute_SemiAutoThreshold(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       MessageStatus
	}{
		{"above threshold", 0.81, StatusAutoSent},
		{"below threshold", 0.79, StatusPending},
		{"exactly at threshold", 0.80, StatusAutoSent},
		{"zero", 0, StatusPending},
		{"clamped above one", 1.7, StatusAutoSent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Route(ModeSemiAuto, 80, tt.confidence)
			if got != tt.want {
				t.Errorf("Route(semi_auto, 80, %v) = %s, want %s", tt.confidence, got, tt.want)
			}
		})
	}
}

func TestRoute_ManualAlwaysPending(t *testing.T) {
	for _, c := range []float64{0, 0.5, 0.99, 1} {
		if got := Route(ModeManual, 0, c); got != StatusPending {
			t.Errorf("Route(manual, %v) = %s, want pending", c, got)
		}
	}
}

func TestRoute_AutoAlwaysSends(t *testing.T) {
	for _, c := range []float64{0, 0.1, 0.99} {
		if got := Route(ModeAuto, 100, c); got != StatusAutoSent {
			t.Errorf("Route(auto, %v) = %s, want auto_sent", c, got)
		}
	}
}

func TestRoute_UnknownModeIsManual(t *testing.T) {
	if got := Route(OperatingMode("yolo"), 0, 1); got != StatusPending {
		t.Errorf("Expected unknown mode to behave as manual, got %s", got)
	}
	if ParseMode("yolo") != ModeManual {
		t.Error("Expected ParseMode to fall back to manual")
	}
}

func TestRouteGeneration_FailureForcesPending(t *testing.T) {
	gen := FailedGeneration(ErrorCodeRateLimit, "rate limited")
	if got := RouteGeneration(ModeAuto, 0, gen); got != StatusPending {
		t.Errorf("Expected failed generation to be pending in auto mode, got %s", got)
	}

	empty := Generation{Confidence: 1}
	if got := RouteGeneration(ModeAuto, 0, empty); got != StatusPending {
		t.Errorf("Expected empty suggestion to be pending, got %s", got)
	}
}

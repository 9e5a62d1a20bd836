package metrics

import "testing"

func TestRunMetricsCache(t *testing.T) {
	SetRunProgress("run-test", 40)
	SetRunFrames("run-test", 1200)

	m := GetRunMetrics("run-test")
	if m == nil {
		t.Fatal("GetRunMetrics returned nil after set")
	}
	if m.Progress != 40 {
		t.Errorf("Progress = %v, want 40", m.Progress)
	}
	if m.Frames != 1200 {
		t.Errorf("Frames = %v, want 1200", m.Frames)
	}

	DeleteRunMetrics("run-test")
	if got := GetRunMetrics("run-test"); got != nil {
		t.Errorf("GetRunMetrics after delete = %+v, want nil", got)
	}
}

func TestGetRunMetricsReturnsCopy(t *testing.T) {
	SetRunProgress("run-copy", 10)
	defer DeleteRunMetrics("run-copy")

	m := GetRunMetrics("run-copy")
	m.Progress = 99

	if got := GetRunMetrics("run-copy"); got.Progress != 10 {
		t.Errorf("cache mutated through returned copy: Progress = %v, want 10", got.Progress)
	}
}

func TestGetRunMetricsUnknown(t *testing.T) {
	if got := GetRunMetrics("no-such-run"); got != nil {
		t.Errorf("GetRunMetrics(unknown) = %+v, want nil", got)
	}
}

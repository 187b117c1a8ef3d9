package services

import "testing"

func TestWorstStatus(t *testing.T) {
	tests := []struct {
		current, candidate, want string
	}{
		{healthOK, healthOK, healthOK},
		{healthOK, healthDegraded, healthDegraded},
		{healthDegraded, healthOK, healthDegraded},
		{healthDegraded, healthCritical, healthCritical},
		{healthCritical, healthDegraded, healthCritical},
	}
	for _, tc := range tests {
		if got := worstStatus(tc.current, tc.candidate); got != tc.want {
			t.Errorf("worstStatus(%q, %q) = %q, want %q", tc.current, tc.candidate, got, tc.want)
		}
	}
}

func TestHTTPStatusForOverall(t *testing.T) {
	s := NewHealthService("", "")
	if got := s.HTTPStatusForOverall(healthCritical); got != 503 {
		t.Errorf("critical = %d, want 503", got)
	}
	if got := s.HTTPStatusForOverall(healthDegraded); got != 200 {
		t.Errorf("degraded = %d, want 200", got)
	}
	if got := s.HTTPStatusForOverall(healthOK); got != 200 {
		t.Errorf("ok = %d, want 200", got)
	}
}

func TestGetHealthReportWithoutDependencies(t *testing.T) {
	report := NewHealthService("", "").GetHealthReport()

	if report.Status != healthCritical {
		t.Fatalf("status without a database = %q, want %q", report.Status, healthCritical)
	}
	if report.Service != defaultServiceName {
		t.Errorf("service = %q", report.Service)
	}
	if len(report.Probes) != 2 {
		t.Fatalf("probes = %d, want 2", len(report.Probes))
	}
	if report.Probes[0].Name != "mysql" || report.Probes[0].Status != probeDown {
		t.Errorf("mysql probe = %+v", report.Probes[0])
	}
	if report.Probes[1].Name != "redis" || report.Probes[1].Status != probeDisabled {
		t.Errorf("redis probe = %+v", report.Probes[1])
	}
}

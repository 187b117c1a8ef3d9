package billing

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestPerSubjectFee(t *testing.T) {
	cases := []struct {
		grade string
		want  float64
	}{
		{"K", 1700},
		{"PK1", 1700},
		{"PK2", 1700},
		{"1", 1700},
		{"4", 1700},
		{"6", 1700},
		{"7", 1800},
		{"9", 1800},
		{"12", 1800},
		{"garbage", 1700},
	}
	for _, c := range cases {
		t.Run(c.grade, func(t *testing.T) {
			if got := PerSubjectFee(c.grade); got != c.want {
				t.Fatalf("PerSubjectFee(%q) = %v, want %v", c.grade, got, c.want)
			}
		})
	}
}

func TestMonthlyFee(t *testing.T) {
	cases := []struct {
		name     string
		grade    string
		subjects int
		want     float64
	}{
		{"grade 4 two subjects", "4", 2, 3400},
		{"grade 8 three subjects", "8", 3, 5400},
		{"kindergarten one subject", "K", 1, 1700},
		{"no subjects floors to one", "3", 0, 1700},
		{"negative count floors to one", "10", -2, 1800},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := MonthlyFee(c.grade, c.subjects); got != c.want {
				t.Fatalf("MonthlyFee(%q, %d) = %v, want %v", c.grade, c.subjects, got, c.want)
			}
		})
	}
}

func TestDueDate(t *testing.T) {
	cases := []struct {
		name  string
		month string
		day   int
		want  time.Time
	}{
		{"september due late august", "2025-09", 25, date(2025, time.August, 25)},
		{"january due late december", "2026-01", 25, date(2025, time.December, 25)},
		{"short month rolls forward", "2025-03", 30, date(2025, time.March, 2)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := DueDate(c.month, c.day)
			if err != nil {
				t.Fatalf("DueDate(%q, %d) error: %v", c.month, c.day, err)
			}
			if !got.Equal(c.want) {
				t.Fatalf("DueDate(%q, %d) = %v, want %v", c.month, c.day, got, c.want)
			}
		})
	}

	if _, err := DueDate("late 2025", 25); err == nil {
		t.Fatal("expected error for malformed month key")
	}
}

func TestLateFeePrepaid(t *testing.T) {
	cfg := DefaultSettings()
	cases := []struct {
		name string
		eval time.Time
		want float64
	}{
		{"well before due date", date(2025, time.August, 10), 0},
		{"on the due date", date(2025, time.August, 25), 0},
		{"end of due day still on time", time.Date(2025, time.August, 25, 23, 59, 0, 0, time.Local), 0},
		{"day after due date", date(2025, time.August, 26), 50},
		{"well after due date", date(2025, time.September, 15), 50},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := LateFee(1700, 0, c.eval, cfg, "2025-09"); got != c.want {
				t.Fatalf("LateFee at %v = %v, want %v", c.eval, got, c.want)
			}
		})
	}
}

func TestLateFeeLegacy(t *testing.T) {
	cfg := DefaultSettings()
	cases := []struct {
		name string
		eval time.Time
		want float64
	}{
		{"early in month", date(2025, time.September, 10), 0},
		{"day before cutoff", date(2025, time.September, 24), 0},
		{"on cutoff", date(2025, time.September, 25), 100},
		{"after cutoff", date(2025, time.September, 28), 100},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := LateFee(1700, 100, c.eval, cfg, ""); got != c.want {
				t.Fatalf("legacy LateFee at %v = %v, want %v", c.eval, got, c.want)
			}
		})
	}
}

func TestCompute(t *testing.T) {
	cfg := DefaultSettings()
	month := "2025-09"
	cases := []struct {
		name string
		base float64
		opts Options
		eval time.Time
		want Charge
	}{
		{
			name: "on time plain month",
			base: 1700,
			eval: date(2025, time.August, 20),
			want: Charge{EffectiveAmount: 1700, Total: 1700},
		},
		{
			name: "registration on time",
			base: 1700,
			opts: Options{Registration: true},
			eval: date(2025, time.August, 20),
			want: Charge{EffectiveAmount: 1700, RegistrationFee: 535, Total: 2235},
		},
		{
			name: "registration paid late",
			base: 1700,
			opts: Options{Registration: true},
			eval: date(2025, time.August, 26),
			want: Charge{EffectiveAmount: 1700, LateFee: 50, RegistrationFee: 535, Total: 2285},
		},
		{
			name: "registration waived",
			base: 1700,
			opts: Options{Registration: true, WaiveRegistration: true},
			eval: date(2025, time.August, 20),
			want: Charge{EffectiveAmount: 1700, Total: 1700},
		},
		{
			name: "half month late",
			base: 1700,
			opts: Options{HalfMonth: true},
			eval: date(2025, time.August, 30),
			want: Charge{EffectiveAmount: 850, LateFee: 50, Total: 900},
		},
		{
			name: "half month everything",
			base: 3400,
			opts: Options{HalfMonth: true, Registration: true},
			eval: date(2025, time.September, 1),
			want: Charge{EffectiveAmount: 1700, LateFee: 50, RegistrationFee: 535, Total: 2285},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Compute(c.base, c.opts, c.eval, cfg, month)
			if got != c.want {
				t.Fatalf("Compute = %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestMonthHelpers(t *testing.T) {
	if got := FormatMonth("2025-09"); got != "September 2025" {
		t.Fatalf("FormatMonth = %q", got)
	}
	if got := FormatMonth("bogus"); got != "bogus" {
		t.Fatalf("FormatMonth passthrough = %q", got)
	}
	if got := MonthKey(date(2025, time.September, 14)); got != "2025-09" {
		t.Fatalf("MonthKey = %q", got)
	}

	months := MonthsOfYear(2025)
	if len(months) != 12 {
		t.Fatalf("MonthsOfYear length = %d", len(months))
	}
	if months[0] != "2025-01" || months[11] != "2025-12" {
		t.Fatalf("MonthsOfYear bounds = %q .. %q", months[0], months[11])
	}
	for i := 1; i < len(months); i++ {
		if months[i-1] >= months[i] {
			t.Fatalf("month keys not sorted: %q before %q", months[i-1], months[i])
		}
	}
}

func TestIsLate(t *testing.T) {
	cfg := DefaultSettings()
	if IsLate("2025-09", cfg, date(2025, time.September, 20)) {
		t.Fatal("before cutoff should not be late")
	}
	if IsLate("2025-09", cfg, date(2025, time.September, 25)) {
		t.Fatal("cutoff day itself should not be late")
	}
	if !IsLate("2025-09", cfg, date(2025, time.September, 26)) {
		t.Fatal("past cutoff should be late")
	}
	if IsLate("bogus", cfg, date(2025, time.September, 26)) {
		t.Fatal("malformed month should never be late")
	}
}

func TestNextMonthKey(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{date(2025, time.August, 15), "2025-09"},
		// End-of-month days must not overshoot into the month after next.
		{date(2025, time.August, 31), "2025-09"},
		{date(2025, time.January, 31), "2025-02"},
		{date(2025, time.March, 30), "2025-04"},
		{date(2025, time.December, 31), "2026-01"},
	}
	for _, tc := range tests {
		if got := NextMonthKey(tc.now); got != tc.want {
			t.Errorf("NextMonthKey(%s) = %q, want %q", tc.now.Format("2006-01-02"), got, tc.want)
		}
	}
}

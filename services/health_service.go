package services

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"schoolfees_go/config"
	"schoolfees_go/database"
)

const (
	healthOK       = "ok"
	healthDegraded = "degraded"
	healthCritical = "critical"

	probeUp       = "up"
	probeDown     = "down"
	probeDisabled = "disabled"

	defaultServiceName = "School Fees API"
	defaultVersion     = "1.0.0"
	defaultTimeout     = 1500 * time.Millisecond
)

// HealthService reports whether the fee tracker can serve requests. MySQL
// holds every student and payment row so its probe is critical; Redis only
// backs the activity-log cache and JWT blacklist, so its loss degrades.
type HealthService struct {
	serviceName string
	version     string
	startTime   time.Time
	timeout     time.Duration
}

// HealthReport is the JSON body of the health endpoint.
type HealthReport struct {
	Status        string        `json:"status"`
	Service       string        `json:"service"`
	Version       string        `json:"version"`
	Environment   string        `json:"environment"`
	Time          time.Time     `json:"time"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	Probes        []ProbeResult `json:"probes"`
	Runtime       RuntimeInfo   `json:"runtime"`
}

// ProbeResult captures one dependency check.
type ProbeResult struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
	Address   string `json:"address,omitempty"`
}

// RuntimeInfo carries the process-level numbers worth glancing at.
type RuntimeInfo struct {
	GoVersion      string `json:"go_version"`
	Goroutines     int    `json:"goroutines"`
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	DBConnections  int    `json:"db_connections"`
}

// NewHealthService creates a new HealthService with sensible defaults.
func NewHealthService(serviceName, version string) *HealthService {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = defaultServiceName
	}
	if strings.TrimSpace(version) == "" {
		version = defaultVersion
	}

	return &HealthService{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		timeout:     defaultTimeout,
	}
}

// GetHealthReport collects the current health information.
func (s *HealthService) GetHealthReport() HealthReport {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report := HealthReport{
		Status:      healthOK,
		Service:     s.serviceName,
		Version:     s.version,
		Environment: currentEnvironment(),
		Time:        time.Now().UTC(),
	}
	if uptime := time.Since(s.startTime); uptime > 0 {
		report.UptimeSeconds = uptime.Seconds()
	}

	dbProbe, dbConns, dbStatus := s.probeDatabase(ctx)
	report.Probes = append(report.Probes, dbProbe)
	report.Status = worstStatus(report.Status, dbStatus)

	redisProbe, redisStatus := s.probeRedis(ctx)
	report.Probes = append(report.Probes, redisProbe)
	report.Status = worstStatus(report.Status, redisStatus)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	report.Runtime = RuntimeInfo{
		GoVersion:      runtime.Version(),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		DBConnections:  dbConns,
	}

	return report
}

// HTTPStatusForOverall maps a health status to an HTTP status code.
func (s *HealthService) HTTPStatusForOverall(status string) int {
	if status == healthCritical {
		return 503
	}
	return 200
}

func (s *HealthService) probeDatabase(ctx context.Context) (ProbeResult, int, string) {
	probe := ProbeResult{Name: "mysql"}

	if database.DB == nil {
		probe.Status = probeDown
		probe.Error = "database connection not initialised"
		return probe, 0, healthCritical
	}

	sqlDB, err := database.DB.DB()
	if err != nil {
		probe.Status = probeDown
		probe.Error = fmt.Sprintf("sql DB handle error: %v", err)
		return probe, 0, healthCritical
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	start := time.Now()
	err = sqlDB.PingContext(pingCtx)
	cancel()
	probe.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		probe.Status = probeDown
		probe.Error = err.Error()
		return probe, 0, healthCritical
	}

	probe.Status = probeUp
	return probe, sqlDB.Stats().OpenConnections, healthOK
}

func (s *HealthService) probeRedis(ctx context.Context) (ProbeResult, string) {
	probe := ProbeResult{Name: "redis"}

	client := database.GetRedisClient()
	if client == nil {
		probe.Status = probeDisabled
		return probe, healthOK
	}

	pingCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	start := time.Now()
	err := client.Ping(pingCtx).Err()
	cancel()
	probe.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		probe.Status = probeDown
		probe.Error = err.Error()
		return probe, healthDegraded
	}

	probe.Status = probeUp
	probe.Address = client.Options().Addr
	return probe, healthOK
}

func currentEnvironment() string {
	if config.AppConfig == nil {
		return "unknown"
	}
	env := strings.TrimSpace(config.AppConfig.AppEnv)
	if env == "" {
		return "unknown"
	}
	return env
}

func worstStatus(current, candidate string) string {
	order := map[string]int{healthOK: 0, healthDegraded: 1, healthCritical: 2}
	if order[candidate] > order[current] {
		return candidate
	}
	return current
}

package routes

import (
	"testing"

	"schoolfees_go/services"

	"github.com/gofiber/fiber/v2"
)

// The JWT guard is registered as a group-level middleware, so a route
// with its own role guard carries two handlers and an open route
// carries one.
func dashboardHandlerCounts(t *testing.T) map[string]int {
	t.Helper()

	app := fiber.New()
	SetupRoutes(app, services.NewHealthService("test", "0.0.0"))

	counts := make(map[string]int)
	for _, route := range app.GetRoutes(true) {
		if route.Method != fiber.MethodGet {
			continue
		}
		counts[route.Path] = len(route.Handlers)
	}
	return counts
}

func TestDashboardMoneyEndpointsRequireAdmin(t *testing.T) {
	counts := dashboardHandlerCounts(t)

	adminOnly := []string{
		"/api/dashboard/month",
		"/api/dashboard/year",
		"/api/dashboard/missing-past",
	}
	for _, path := range adminOnly {
		n, ok := counts[path]
		if !ok {
			t.Fatalf("route %s is not registered", path)
		}
		if n != 2 {
			t.Errorf("%s has %d handlers, want a role guard plus the handler", path, n)
		}
	}

	// Front desk staff chase the current month's unpaid list, so it
	// stays open to any authenticated user.
	n, ok := counts["/api/dashboard/missing-current"]
	if !ok {
		t.Fatal("route /api/dashboard/missing-current is not registered")
	}
	if n != 1 {
		t.Errorf("/api/dashboard/missing-current has %d handlers, want the bare handler", n)
	}
}

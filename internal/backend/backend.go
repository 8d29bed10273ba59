package backend

// Backend is one configured forwarding target. ID is the target's position in
// the configured sequence; the set of targets is fixed for the process
// lifetime, so IDs are stable and safe to use as registry indices.
type Backend struct {
	ID              int
	Address         string
	HealthCheckPath string
}

// PathRoute pins all request paths sharing PathPrefix to a fixed address,
// bypassing health checks. Routes are evaluated in configuration order and
// the first prefix match wins.
type PathRoute struct {
	PathPrefix string
	Address    string
}

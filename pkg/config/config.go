package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	ListenAddr        string // UDP address to receive telemetry datagrams
	GateFile          string // path to the gate table file (empty: built-in table)
	Player            string // player name recorded on laps
	NatsURL           string // NATS server URL (empty: publishing disabled)
	TelemetryPort     int    // UDP port carrying telemetry data in captures
	ReplaySpeed       int    // replay speed factor (0: no pacing)
	LogLevel          string // sets the log level (zap log level values)
	LogFormat         string // text vs json
	LogConfig         string // path to log config file
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry
	ProfilingPort     int    // port for profiling data
)

// Config holds the configuration values which are used by the application
type Config struct {
	PrintSamples bool // if true, decoded samples will be printed on debug level
}

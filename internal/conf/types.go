package conf

import (
	"google.golang.org/protobuf/types/known/durationpb"
)

// Bootstrap is the root configuration for the StarPort service.
type Bootstrap struct {
	Server     *Server
	Data       *Data
	Swapi      *Swapi
	Statistics *Statistics
	Log        *Log
}

// Server holds transport server configuration.
type Server struct {
	Http *Server_HTTP
}

// Server_HTTP holds HTTP server configuration.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

// Data holds data layer configuration.
type Data struct {
	Redis *Data_Redis
}

// Data_Redis holds Redis connection configuration.
type Data_Redis struct {
	Network      string
	Addr         string
	Password     string
	Db           int32
	ReadTimeout  *durationpb.Duration
	WriteTimeout *durationpb.Duration
}

// Swapi holds upstream SWAPI client configuration.
type Swapi struct {
	// BaseUrl is the upstream API base URL, e.g. https://www.swapi.tech/api
	BaseUrl string
	// Timeout is the per-call HTTP timeout. Each retry attempt gets the
	// full timeout independently.
	Timeout *durationpb.Duration
	// RetryTimes is the number of retries after the initial attempt.
	RetryTimes int32
	// RetrySleep is the sleep before each retry attempt.
	RetrySleep *durationpb.Duration
	// ProxyUrl is an optional outbound proxy (socks5:// or http://).
	ProxyUrl string
	// DefaultPageSize is the page size used when a search request does
	// not specify a limit.
	DefaultPageSize int32
	// Circuit breaker thresholds, shared by all upstream circuits.
	CircuitFailureThreshold         int32
	CircuitTimeout                  *durationpb.Duration
	CircuitHalfOpenSuccessThreshold int32
}

// Statistics holds query-statistics subsystem configuration.
type Statistics struct {
	QueryLogKey        string
	QueryCountsKey     string
	FilmQueryLogKey    string
	FilmQueryCountsKey string
	SearchLogKey       string
	SearchCountsKey    string
	CacheKey           string
	CacheTtl           *durationpb.Duration
	// RecomputeCron is a robfig/cron spec (with seconds field) for the
	// scheduled statistics recomputation. Empty disables the job.
	RecomputeCron string
	// MetricsQueueSize bounds the in-process metrics queue; events beyond
	// it are dropped.
	MetricsQueueSize int32
}

// Log holds logging configuration.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}

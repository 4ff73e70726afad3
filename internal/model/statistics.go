package model

// PopularHour is the query volume observed in one hour of the day.
type PopularHour struct {
	Hour       int   `json:"hour"`
	TotalCount int64 `json:"total_count"`
}

// TopSearchQuery is one ranked entry of the most frequent search queries.
type TopSearchQuery struct {
	SearchType string  `json:"search_type"`
	Query      string  `json:"query"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// QueryStatistics is the aggregate report computed from the query logs and
// counters. AverageResponseTimeMs is rounded to 2 decimals before caching,
// so the cached and served forms are identical.
type QueryStatistics struct {
	AverageResponseTimeMs float64           `json:"average_response_time_ms"`
	PopularHours          []*PopularHour    `json:"popular_hours"`
	TotalQueries          int64             `json:"total_queries"`
	TopSearchQueries      []*TopSearchQuery `json:"top_search_queries"`
	ComputedAt            string            `json:"computed_at"`
}

// CircuitState is the circuit breaker state of one upstream endpoint key.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitStats is a read-only snapshot of one circuit's counters.
type CircuitStats struct {
	State             CircuitState `json:"state"`
	Failures          int64        `json:"failures"`
	Successes         int64        `json:"successes"`
	LastFailureTime   int64        `json:"last_failure_time"`
	HalfOpenSuccesses int64        `json:"half_open_successes"`
}

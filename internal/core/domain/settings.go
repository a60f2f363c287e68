package domain

import (
	"fmt"
	"time"
)

// CacheBackend selects where completed analyses are kept.
type CacheBackend string

// Available cache backends.
const (
	// CacheMemory keeps analyses for the lifetime of the process.
	CacheMemory CacheBackend = "memory"

	// CacheSQLite persists analyses across restarts.
	CacheSQLite CacheBackend = "sqlite"
)

// IsValid returns true if the cache backend is recognised.
func (b CacheBackend) IsValid() bool {
	return b == CacheMemory || b == CacheSQLite
}

// String returns the string representation.
func (b CacheBackend) String() string {
	return string(b)
}

// Settings is the complete client configuration.
type Settings struct {
	API     APISettings
	Polling PollingSettings
	Upload  UploadSettings
	Cache   CacheSettings
	Metrics MetricsSettings
}

// APISettings configures the REST backend client.
type APISettings struct {
	// BaseURL is the backend API root, e.g. http://localhost:8000/api.
	BaseURL string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// RateLimit is the sustained request rate (requests per second).
	RateLimit float64

	// Burst is the token bucket size.
	Burst int
}

// PollingSettings configures the analysis polling scheduler.
type PollingSettings struct {
	// InitialDelay is the wait between a successful upload and the first poll.
	InitialDelay time.Duration

	// RetryDelay is the fixed wait after a not-ready answer and the first
	// backoff step after a failure.
	RetryDelay time.Duration

	// BackoffFactor multiplies the wait after each consecutive failure.
	BackoffFactor float64

	// MaxBackoff caps the wait between failed attempts.
	MaxBackoff time.Duration

	// MaxFailures is the number of consecutive network or server failures
	// tolerated before the document is marked FAILED.
	MaxFailures int

	// MaxWait bounds how long a document may stay not-ready. Zero disables it.
	MaxWait time.Duration
}

// UploadSettings configures the upload coordinator.
type UploadSettings struct {
	// Concurrency is how many files are uploaded at once. 1 is sequential.
	Concurrency int

	// Inspect enables content inspection (PDF structure, image headers).
	Inspect bool
}

// CacheSettings configures the analysis cache.
type CacheSettings struct {
	Backend CacheBackend

	// Dir holds the sqlite database. Empty means ~/.patiently/data.
	Dir string
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	// Addr is the listen address, e.g. ":9464". Empty disables the endpoint.
	Addr string
}

// DefaultSettings returns the defaults observed against the reference backend.
func DefaultSettings() Settings {
	return Settings{
		API: APISettings{
			BaseURL:   "http://localhost:8000/api",
			Timeout:   30 * time.Second,
			RateLimit: 10,
			Burst:     20,
		},
		Polling: PollingSettings{
			InitialDelay:  3 * time.Second,
			RetryDelay:    2 * time.Second,
			BackoffFactor: 2,
			MaxBackoff:    30 * time.Second,
			MaxFailures:   5,
			MaxWait:       10 * time.Minute,
		},
		Upload: UploadSettings{
			Concurrency: 1,
			Inspect:     true,
		},
		Cache: CacheSettings{
			Backend: CacheMemory,
		},
	}
}

// Validate checks that the settings can drive the client.
func (s Settings) Validate() error {
	switch {
	case s.API.BaseURL == "":
		return fmt.Errorf("%w: api.url must be set", ErrInvalidInput)
	case s.API.Timeout <= 0:
		return fmt.Errorf("%w: api.timeout must be positive", ErrInvalidInput)
	case s.API.RateLimit < 0 || s.API.Burst < 0:
		return fmt.Errorf("%w: api.rate_limit and api.burst must not be negative", ErrInvalidInput)
	case s.Polling.InitialDelay < 0 || s.Polling.RetryDelay <= 0:
		return fmt.Errorf("%w: polling delays must be positive", ErrInvalidInput)
	case s.Polling.MaxFailures < 1:
		return fmt.Errorf("%w: polling.max_failures must be at least 1", ErrInvalidInput)
	case s.Upload.Concurrency < 1:
		return fmt.Errorf("%w: upload.concurrency must be at least 1", ErrInvalidInput)
	case !s.Cache.Backend.IsValid():
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidInput, s.Cache.Backend)
	}
	return nil
}

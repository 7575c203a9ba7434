package sources

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds every HTTP request a source makes.
const DefaultTimeout = 30 * time.Second

type options struct {
	httpClient *http.Client
	cache      Cache
}

// Option configures Default.
type Option func(*options)

// WithHTTPClient overrides the client used by network sources.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithCache overrides the lookup cache of the catalog source.
func WithCache(c Cache) Option {
	return func(o *options) { o.cache = c }
}

func applyOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if o.cache == nil {
		o.cache = NewCache()
	}
	return o
}

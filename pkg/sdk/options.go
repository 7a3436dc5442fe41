package renoplan

import "net/http"

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	privateKey string
	httpClient *http.Client
}

// WithPrivateKey sets the X-Private-Key header sent with every request.
// Required when the server runs with auth enabled.
func WithPrivateKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.privateKey = key
	})
}

// WithHTTPClient replaces the default HTTP client. A consultation fans out
// one engine analysis per catalog candidate, so keep the timeout generous.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

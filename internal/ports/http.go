package ports

import "net/http"

// HTTPClient abstracts the Do method used for outgoing HTTP requests.
// Clients handed to the resolver must not follow redirects themselves.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

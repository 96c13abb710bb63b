// Package httpclient is the HTTP client used to reach analysis model
// servers and remote analysis services. It encodes JSON and multipart
// bodies, classifies failures by status code and applies the resilience
// policies from the resilience package.
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL:        "http://face-detector:8080",
//	    Retry:          httpclient.DefaultRetryConfig(),
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("face-detector"),
//	})
//	resp, err := httpclient.Post[Detection](client, ctx, "/detect", payload)
package httpclient

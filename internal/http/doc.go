// Package http provides the HTTP client shared by the gateway adapter and
// the cover-art fetcher.
//
// The Client in this package handles:
//   - User-Agent and extra headers on every request
//   - Proxy configuration
//   - Timeouts for metadata requests, context-only bounds for streams
//
// # Basic Usage
//
//	client := http.NewClient(http.Config{Timeout: 30 * time.Second})
//
//	// Fetch JSON metadata
//	err := client.GetJSON(ctx, baseURL+"/tracks/"+id, &meta)
//
//	// Open an audio stream of known size
//	stream, err := client.OpenStream(ctx, baseURL+"/stream/track/"+id)
//	defer stream.Close()
package http

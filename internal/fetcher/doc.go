// Package fetcher retrieves archive pages over HTTP.
//
// A Fetcher owns one http.Client and its connection pool for the lifetime
// of a run; every page of a list is fetched through it, concurrently if
// the caller wishes. Connections are made over IPv4 only and certificates
// are not verified. An optional SOCKS5 proxy can be placed in front of
// every connection.
//
// Non-success status codes are not treated as errors. The body is returned
// as is and a warning is logged, so an error page reaches the parser and
// fails there if it lacks the expected markers.
package fetcher

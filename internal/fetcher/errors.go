package fetcher

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrBodyTooLarge is returned when a response exceeds the body size limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

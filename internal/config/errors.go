package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers match them with errors.Is.
var (
	// ErrNoList is returned when no mailing list name was given.
	ErrNoList = errors.New("no mailing list specified")

	// ErrEmptyListName is returned when a list name is blank.
	ErrEmptyListName = errors.New("mailing list name must not be empty")

	// ErrInvalidBaseURL is returned when the archive URL template is not http(s).
	ErrInvalidBaseURL = errors.New("invalid base URL: must start with http:// or https://")

	// ErrMissingPlaceholder is returned when the URL template lacks "{list}".
	ErrMissingPlaceholder = errors.New("invalid base URL: missing " + ListPlaceholder + " placeholder")

	// ErrInvalidTimeout is returned when the timeout is negative.
	// Zero is allowed and disables the timeout.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidConcurrency is returned when the month fetch cap is negative.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidProxyAddress is returned when the proxy is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingSummaryFlags is returned when more than one of --json,
	// --markdown and --quiet is set.
	ErrConflictingSummaryFlags = errors.New("conflicting summary flags: use only one of --json, --markdown and --quiet")

	// ErrInvalidHeader is returned when a header argument is not "Name: value".
	ErrInvalidHeader = errors.New("invalid header: must be \"Name: value\"")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)

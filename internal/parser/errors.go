package parser

import "errors"

var (
	// ErrNoTable is returned when the archive index has no link table.
	ErrNoTable = errors.New("archive index has no link table")

	// ErrNoHeading is returned when a month page has no heading to take the
	// month label from.
	ErrNoHeading = errors.New("month page has no heading")

	// ErrNoThreadList is returned when a month page has fewer containers
	// than the layout's thread container position.
	ErrNoThreadList = errors.New("month page has no thread list container")
)

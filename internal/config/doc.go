// Package config provides configuration structures and utilities for liststat.
// It defines the options of an archive run, the per-list overrides read from
// the .liststat YAML file, and the XDG directories used for the history
// database.
package config

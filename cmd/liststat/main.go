// Package main provides the entry point for the liststat CLI.
//
// liststat collects activity statistics from freelists.org mailing list
// archives: emails and senders per month, and active months per year.
// The result is written to {list_name}.json.
//
// Usage:
//
//	liststat stat <list-name>
//	liststat compare <list-name>
//
// See --help for all available options.
package main

// main is the entry point for liststat.
func main() {
	Execute()
}

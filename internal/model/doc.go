// Package model defines the data structures shared by the fetcher, parser,
// pipeline and report packages.
//
// This package contains the following main types:
//   - ArchiveLink, YearSummary: the parsed archive index
//   - MonthStat, SenderCount: the counts extracted from one month page
//   - AggregateOutput: the JSON document written for a list
//   - Run: the state of one list's run as it moves through the pipeline
//   - Summary: derived figures for the text and Markdown summaries
//
// The models live in their own package so that parser, pipeline, report
// and database can share them without import cycles.
package model

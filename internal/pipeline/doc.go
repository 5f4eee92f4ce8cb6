// Package pipeline drives an archive run.
//
// A run for one mailing list is a Pipeline of two steps sharing a fetcher:
// IndexStep fetches the archive index and records the month links and the
// year summary, then MonthsStep fetches every month page concurrently and
// records one MonthStat per page. The pipeline stops at the first error;
// a failed run is never turned into output.
//
// BatchProcessor runs the pipelines of several lists concurrently with
// errgroup, keeping each list's failure on its own Run.
package pipeline

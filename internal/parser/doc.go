// Package parser extracts archive statistics from mailing list archive pages.
//
// Two page kinds are understood. The archive index holds a table of month
// links such as "January-2020"; ParseIndex turns it into ArchiveLinks and a
// count of active months per year. A month page lists one entry per thread
// with the sender at the end of its text; ParseMonth turns it into a
// MonthStat.
//
// Extraction is positional and follows the markers of a Layout. The default
// layout matches freelists.org: the first table on the index, the first h1
// on a month page, and the "ul > li" entries of the fourth div.
package parser

// Package cronexpr parses five-field cron expressions and computes their
// next occurrences.
//
// An expression has the fields
//
//	minute hour day-of-month month day-of-week
//
// Each field is a comma separated list of "*", "N", "N-M", "*/S" or "N-M/S".
// Month and day-of-week also accept names, matched case-insensitively on
// their first two letters ("jan", "Ju", "monday"). Day-of-week 0 and 7 both
// mean Sunday. Fewer than five fields are padded with "*", so "30 4" runs at
// 04:30 every day. The shortcuts @yearly, @annually, @monthly, @weekly,
// @daily, @midnight and @hourly are expanded before parsing.
//
// When both day-of-month and day-of-week are restricted, a day matches if
// either one matches. "0 0 15 * 1" runs on the 15th and on every Monday.
//
// Basic usage:
//
//	e, err := cronexpr.Parse("*/15 9-17 * * mon-fri")
//	if err != nil {
//		return err
//	}
//	next, err := e.Next(time.Now())
//
// Next works in the location of the instant passed to it. Wall times that a
// DST transition skips are never returned.
package cronexpr

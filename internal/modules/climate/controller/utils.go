package controller

import (
	"fmt"
	"regexp"
)

var datePattern = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?$`)

// validateDateRange checks start and end (end may be empty) against the
// YYYY, YYYY-MM and YYYY-MM-DD forms and requires start <= end.
func validateDateRange(start, end string) error {
	if !datePattern.MatchString(start) {
		return fmt.Errorf("invalid start date %q (expected YYYY, YYYY-MM or YYYY-MM-DD)", start)
	}
	if end == "" {
		return nil
	}
	if !datePattern.MatchString(end) {
		return fmt.Errorf("invalid end date %q (expected YYYY, YYYY-MM or YYYY-MM-DD)", end)
	}
	if start > end {
		return fmt.Errorf("start date %q must be <= end date %q", start, end)
	}
	return nil
}

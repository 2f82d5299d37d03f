package gocfb

import (
	"time"
)

// filetimeEpochDelta is the number of 100ns intervals between 1601-01-01 and 1970-01-01.
const filetimeEpochDelta = 116444736000000000

// ParseFiletime reads the given input as a Windows FILETIME like it is used in directory entries:
//  A FILETIME is a 64-bit value that represents the number of 100-nanosecond
//  intervals that have elapsed since 12:00 A.M. January 1, 1601, UTC.
// It returns a time.Time in UTC.
//
// The value 0 means that no time was recorded, which is common for stream entries and the root
// entry. In that case time.Time{} is returned to be compatible with time.Time.IsZero().
func ParseFiletime(input uint64) time.Time {
	if input == 0 {
		return time.Time{}
	}

	// Split first to avoid overflowing int64 for values far in the future.
	seconds := int64(input / 10000000)
	nanos := int64(input%10000000) * 100

	return time.Unix(seconds-filetimeEpochDelta/10000000, nanos).UTC()
}

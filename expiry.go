package kvault

import "time"

// ExpireAt computes the absolute deadline in epoch milliseconds for an entry
// written at now. ttl <= 0 means no expiry.
// Returns 0 for "never expires".
func ExpireAt(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return now.Add(ttl).UnixMilli()
}

// Expired reports whether a deadline written by ExpireAt has passed.
// A deadline equal to now is still live.
func Expired(expireAt int64, now time.Time) bool {
	return expireAt > 0 && expireAt < now.UnixMilli()
}

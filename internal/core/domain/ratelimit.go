package domain

import "time"

// RateLimitWindow holds per-account rate limiting counters: the cooldown
// timestamp and the rolling daily total. The check and the write are one
// atomic step at the store layer; this struct is only ever a read snapshot.
type RateLimitWindow struct {
	CommunityID  string    `json:"communityID"`
	AccountID    string    `json:"accountID"`
	LastActionAt time.Time `json:"lastActionAt"`
	RollingTotal int64     `json:"rollingTotal"`
	WindowStart  time.Time `json:"windowStart"`
}

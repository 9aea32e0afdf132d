package entities

import (
	"fmt"
	"strconv"
	"time"
)

// DayLayout is the civil-date format used for RollRecord.Day and DuplicateAttempt.Day
const DayLayout = "2006-01-02"

// UserID is a Discord user snowflake
type UserID int64

// ParseUserID parses a Discord snowflake string
func ParseUserID(s string) (UserID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", s, err)
	}
	return UserID(id), nil
}

// String returns the snowflake form used by Discord
func (u UserID) String() string {
	return strconv.FormatInt(int64(u), 10)
}

// User is a participant as last seen by the bot, kept for reports
type User struct {
	ID       UserID
	Username string
}

// RollRecord is one successful daily roll
type RollRecord struct {
	ID         string    // Unique identifier
	User       UserID    // Who rolled
	Value      int       // Drawn value, 1-12
	OccurredAt time.Time // When the roll was evaluated
	Day        string    // Calendar day of OccurredAt in the reference zone
	Removed    bool      // Invalidated by a moderator
	RemovedBy  *UserID   // Moderator who invalidated it, set only when Removed

	// Username is filled in by ledger queries and is not written by appends
	Username string
}

// DuplicateAttempt is a rejected roll on a day the user already rolled
type DuplicateAttempt struct {
	ID          string
	User        UserID
	AttemptedAt time.Time
	Day         string

	Username string
}

// DisplayName returns the username, falling back to the numeric id
func (r *RollRecord) DisplayName() string {
	if r.Username != "" {
		return r.Username
	}
	return r.User.String()
}

// DisplayName returns the username, falling back to the numeric id
func (d *DuplicateAttempt) DisplayName() string {
	if d.Username != "" {
		return d.Username
	}
	return d.User.String()
}

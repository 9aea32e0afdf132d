package ledger

import (
	"time"

	"github.com/fadedpez/pitbot/pkg/entities"
)

// ESRoll is a roll document in the <prefix>_rolls_<month> index
type ESRoll struct {
	RollID       string    `json:"roll_id"`
	UserID       string    `json:"user_id"`
	Value        int       `json:"value"`
	OccurredAt   time.Time `json:"occurred_at"`
	OccurredAtUS int64     `json:"occurred_at_us"` // UnixMicro, exact match key for invalidation
	Day          string    `json:"roll_day"`
	Removed      bool      `json:"removed"`
	RemovedBy    string    `json:"removed_by,omitempty"`
}

// ESDuplicate is a rejected attempt document in the <prefix>_doublerolls_<month> index
type ESDuplicate struct {
	AttemptID   string    `json:"attempt_id"`
	UserID      string    `json:"user_id"`
	AttemptedAt time.Time `json:"attempted_at"`
	Day         string    `json:"roll_day"`
}

func newESRoll(roll *entities.RollRecord) ESRoll {
	doc := ESRoll{
		RollID:       roll.ID,
		UserID:       roll.User.String(),
		Value:        roll.Value,
		OccurredAt:   roll.OccurredAt.UTC(),
		OccurredAtUS: roll.OccurredAt.UnixMicro(),
		Day:          roll.Day,
		Removed:      roll.Removed,
	}
	if roll.RemovedBy != nil {
		doc.RemovedBy = roll.RemovedBy.String()
	}
	return doc
}

func newESDuplicate(attempt *entities.DuplicateAttempt) ESDuplicate {
	return ESDuplicate{
		AttemptID:   attempt.ID,
		UserID:      attempt.User.String(),
		AttemptedAt: attempt.AttemptedAt.UTC(),
		Day:         attempt.Day,
	}
}

const rollsMapping = `{
	"mappings": {
		"properties": {
			"roll_id": { "type": "keyword" },
			"user_id": { "type": "keyword" },
			"value": { "type": "integer" },
			"occurred_at": { "type": "date" },
			"occurred_at_us": { "type": "long" },
			"roll_day": { "type": "keyword" },
			"removed": { "type": "boolean" },
			"removed_by": { "type": "keyword" }
		}
	}
}`

const duplicatesMapping = `{
	"mappings": {
		"properties": {
			"attempt_id": { "type": "keyword" },
			"user_id": { "type": "keyword" },
			"attempted_at": { "type": "date" },
			"roll_day": { "type": "keyword" }
		}
	}
}`

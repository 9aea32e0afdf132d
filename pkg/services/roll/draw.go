package roll

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/fadedpez/pitbot/pkg/entities"
)

// Sides is the highest value a daily roll can produce
const Sides = 12

// pcgStream separates the PCG stream from its state so both words of the seed differ
const pcgStream = 0x9e3779b97f4a7c15

// Category selects how a roll is presented; it never affects stored data
type Category string

const (
	CategoryOne      Category = "one"
	CategoryOneBozo  Category = "one_bozo"
	CategoryLow      Category = "low"
	CategorySus      Category = "sus"
	CategoryHigh     Category = "high"
	CategoryTop      Category = "top"
	CategoryJoke     Category = "joke"
	CategoryJokeBozo Category = "joke_bozo"
)

// Flair draws an unseeded cosmetic number in [1, n]
type Flair func(n int) int

// DefaultFlair uses the process-wide generator, which is safe for concurrent use
func DefaultFlair(n int) int {
	return rand.IntN(n) + 1
}

// Seed derives the per-day seed for user from the civil date of now in loc
func Seed(user entities.UserID, now time.Time, loc *time.Location) uint64 {
	local := now.In(loc)

	var buf [32]byte
	binary.BigEndian.PutUint64(buf[0:], uint64(user))
	binary.BigEndian.PutUint64(buf[8:], uint64(local.Year()))
	binary.BigEndian.PutUint64(buf[16:], uint64(local.Month()))
	binary.BigEndian.PutUint64(buf[24:], uint64(local.Day()))

	h := fnv.New64a()
	h.Write(buf[:])
	return h.Sum64()
}

// Draw returns the user's value for the day containing now, in [1, Sides]
func Draw(user entities.UserID, now time.Time, loc *time.Location) int {
	seed := Seed(user, now, loc)
	r := rand.New(rand.NewPCG(seed, seed^pcgStream))
	return r.IntN(Sides) + 1
}

// Classify maps a drawn value to its presentation category.
// flair is only consulted for the rare variants.
func Classify(value int, joke bool, flair Flair) Category {
	if joke {
		if flair(100) >= 69 {
			return CategoryJokeBozo
		}
		return CategoryJoke
	}

	switch {
	case value <= 1:
		if flair(100) == 69 {
			return CategoryOneBozo
		}
		return CategoryOne
	case value <= 5:
		return CategoryLow
	case value == 6:
		return CategorySus
	case value <= 9:
		return CategoryHigh
	default:
		return CategoryTop
	}
}

// DayOf returns the civil date of t in loc as stored in the ledger
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(entities.DayLayout)
}

// SameDay reports whether a and b fall on the same calendar day in loc
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// NextMidnight returns 00:00 of the day after t in loc
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

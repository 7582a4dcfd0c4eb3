// Package quota enforces the daily free-preview allowance.
//
// The allowance is a soft, device-local throttle: the record lives in a local
// store shared by every session on the device, mutation is optimistic
// last-write-wins, and nothing server-side backs it up. It shapes user
// behavior; it is not a security boundary.
package quota

import (
	"encoding/json"
	"fmt"
	"time"
)

// DailyLimit is the number of free preview generations per calendar day.
const DailyLimit = 3

// RecordKey is the store key the quota record lives under.
const RecordKey = "dailyPreviewQuota"

// Record is the persisted quota state for one calendar day.
type Record struct {
	Date  string `json:"date"` // device-local day, YYYY-MM-DD
	Count int    `json:"count"`
}

// DateKey formats a time as the calendar-day key the record is bucketed by.
func DateKey(now time.Time) string {
	return now.Format("2006-01-02")
}

// consume applies the check-and-increment policy to a record. A record for a
// different day (including the zero record) counts as fresh, so the first
// call on a new day always succeeds. Pure; callers supply today's key.
func consume(rec Record, today string) (Record, bool) {
	if rec.Date != today {
		rec = Record{Date: today}
	}
	if rec.Count >= DailyLimit {
		return rec, false
	}
	rec.Count++
	return rec, true
}

// remaining reports the unused slots a record leaves for the given day.
func remaining(rec Record, today string) int {
	if rec.Date != today {
		return DailyLimit
	}
	if rec.Count >= DailyLimit {
		return 0
	}
	return DailyLimit - rec.Count
}

// Tracker gates preview generation against the daily allowance.
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker returns a tracker backed by the given store. A nil now falls
// back to time.Now; tests pass a fixed clock to pin rollover behavior.
func NewTracker(store Store, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, now: now}
}

// ConsumeIfAvailable takes one quota slot if any remain today. It returns
// true and persists the incremented record on success; on refusal the stored
// record is left untouched. The slot is not returned on downstream failure.
func (t *Tracker) ConsumeIfAvailable() (bool, error) {
	rec, err := t.load()
	if err != nil {
		return false, err
	}

	today := DateKey(t.now())
	rec, ok := consume(rec, today)
	if !ok {
		return false, nil
	}
	if err := t.save(rec); err != nil {
		return false, err
	}
	return true, nil
}

// Remaining reports how many free previews are left today.
func (t *Tracker) Remaining() (int, error) {
	rec, err := t.load()
	if err != nil {
		return 0, err
	}
	return remaining(rec, DateKey(t.now())), nil
}

func (t *Tracker) load() (Record, error) {
	raw, ok, err := t.store.Get(RecordKey)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read quota record: %w", err)
	}
	if !ok {
		return Record{}, nil
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		// A corrupt record resets the allowance rather than wedging the
		// wizard; it is only a soft throttle.
		return Record{}, nil
	}
	return rec, nil
}

func (t *Tracker) save(rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode quota record: %w", err)
	}
	if err := t.store.Set(RecordKey, string(raw)); err != nil {
		return fmt.Errorf("failed to persist quota record: %w", err)
	}
	return nil
}

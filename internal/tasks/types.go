package tasks

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time of day. It serializes as YYYY-MM-DD.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses an ISO-8601 calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Task struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Owner       string `json:"user"`
	Completed   bool   `json:"completed"`
	CreatedDate Date   `json:"date"`
}

type UserStats struct {
	Daily int `json:"daily"`
	Total int `json:"total"`
}

// Ranked is one leaderboard row.
type Ranked struct {
	User  string `json:"user"`
	Count int    `json:"count"`
}

// State is the full persisted content of the task store. Tasks are kept in
// insertion order.
type State struct {
	Tasks []Task
	Stats map[string]UserStats
}

func (s State) Clone() State {
	out := State{
		Tasks: make([]Task, len(s.Tasks)),
		Stats: make(map[string]UserStats, len(s.Stats)),
	}
	copy(out.Tasks, s.Tasks)
	for user, st := range s.Stats {
		out.Stats[user] = st
	}
	return out
}

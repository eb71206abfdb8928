package entity

import "time"

// TrafficSlot mirrors the `traffic_slots` PostgreSQL table schema. Counter is
// bounded in [0, MaxTraffic] and reset to 0 once per calendar day.
type TrafficSlot struct {
	ID                int64
	Platform          Platform
	Counter           int
	MaxTraffic        int
	LastTrafficUpdate time.Time
	TrafficResetDate  string // YYYY-MM-DD of the last daily reset
}

// TrackedSlot is a registered keyword/link pair owned by a customer, the
// source rows a manual refresh copies into the task store.
type TrackedSlot struct {
	ID            int64
	CustomerID    string
	SlotSequence  int
	Keyword       string
	LinkURL       string
	Platform      Platform
	CurrentRank   *int
	LastCheckDate *time.Time
}

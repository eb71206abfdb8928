package entity

import "time"

// RankResult is the outcome of resolving one tracking task against a
// search-result listing.
type RankResult struct {
	Found           bool
	Rank            *int // nil when the target was not located within bounds
	TargetID        string
	TotalCandidates int
	PagesChecked    int
	ProcessingTime  time.Duration
}

// RankObservation mirrors the `rank_observations` PostgreSQL table schema:
// the latest known state for a (customer, slot) pair. StartRank is set on the
// first successful resolution and never overwritten afterward.
type RankObservation struct {
	CustomerID   string
	SlotSequence int
	Keyword      string
	LinkURL      string
	Platform     Platform
	CurrentRank  *int
	StartRank    *int
	UpdatedAt    time.Time
}

// RankHistoryEntry mirrors the append-only `rank_history` PostgreSQL table
// schema. RankChange is the signed delta against the immediately preceding
// observation (positive = improved); StartRankDiff is the cumulative delta
// against the first-ever observed rank.
type RankHistoryEntry struct {
	ID            int64
	CustomerID    string
	SlotSequence  int
	Rank          *int
	RankChange    int
	StartRankDiff int
	ObservedAt    time.Time
}

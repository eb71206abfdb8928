package entity

import "time"

// Platform identifies one marketplace search surface with its own listing format.
type Platform string

const (
	PlatformCoupang       Platform = "coupang"
	PlatformCoupangApp    Platform = "coupang-app"
	PlatformNaverShopping Platform = "naver-shopping"
	PlatformPlace         Platform = "place"
)

// TrackingTask mirrors the `tracking_tasks` PostgreSQL table schema.
// Tasks are insert-only work items; the orchestrator deletes a row once its
// cycle completes with a terminal outcome.
type TrackingTask struct {
	ID           int64
	Keyword      string
	LinkURL      string
	Platform     Platform
	CustomerID   string
	SlotSequence int
	CreatedAt    time.Time
}

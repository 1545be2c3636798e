package domain

import "time"

// ThreeLockHashes are the hierarchical identity digests of one visit.
type ThreeLockHashes struct {
	Gold   string `json:"gold"`
	Silver string `json:"silver"`
	Bronze string `json:"bronze"`
}

// VisitMeta is display metadata derived from a snapshot at insert time.
type VisitMeta struct {
	Browser    string
	OS         string
	DeviceType string
	Country    string
	Screen     string
	GPUVendor  string
}

type VisitRecord struct {
	ID        string
	CreatedAt time.Time
	Hashes    ThreeLockHashes
	Meta      VisitMeta
	RawJSON   []byte
}

type TrackingRisk string

const (
	TrackingRiskCritical TrackingRisk = "critical"
	TrackingRiskHigh     TrackingRisk = "high"
	TrackingRiskMedium   TrackingRisk = "medium"
	TrackingRiskLow      TrackingRisk = "low"
)

// StatsSnapshot is the single global counters row.
type StatsSnapshot struct {
	TotalFingerprints  int64
	UniqueFullHash     int64
	UniqueHardwareHash int64
	UpdatedAt          time.Time
}

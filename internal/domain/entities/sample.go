package entities

import "time"

// ResourceSample is one snapshot of host resource usage, appended to the
// sampler log during long-running builds
type ResourceSample struct {
	Timestamp    time.Time `json:"timestamp"`
	MemTotal     uint64    `json:"mem_total"`
	MemAvailable uint64    `json:"mem_available"`
	MemUsedPct   float64   `json:"mem_used_pct"`
	DiskTotal    uint64    `json:"disk_total"`
	DiskFree     uint64    `json:"disk_free"`
	DiskUsedPct  float64   `json:"disk_used_pct"`
	Load1        float64   `json:"load1"`
}

// BuildEstimate is a coarse, heuristic prediction of how long an image
// bake will take on the current host
type BuildEstimate struct {
	Duration     time.Duration
	CPUCount     int
	MemAvailable uint64
	DiskFree     uint64
	DiskRequired uint64
	Warnings     []string
}

// DiskSufficient reports whether the host has enough free disk for the
// installer to unpack and install
func (e *BuildEstimate) DiskSufficient() bool {
	return e.DiskRequired == 0 || e.DiskFree >= e.DiskRequired
}

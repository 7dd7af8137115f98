package gateways

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/kilnworks/kiln/internal/domain/entities"
)

// Heuristic constants for the estimate. Calibrated against observed
// Vivado installs: the dominant costs are unpacking the archive, the
// installer copying it again, and the package layer on top.
const (
	// assumed sequential disk throughput for untar + install copies
	assumedDiskThroughput = 150 << 20 // bytes/s
	// archive is read once and written roughly twice during install
	ioPasses = 3
	// apt layer and installer bookkeeping, independent of artifact size
	fixedOverhead = 15 * time.Minute
	// installs thrash with less than this much memory available
	minComfortableMem = 8 << 30
	defaultDiskFactor = 3
)

// BuildEstimator produces coarse build-time predictions from host
// resources. Estimates are advisory; the disk-space warning is the part
// operators actually need, since the vendor installer fails hours in
// when space runs out.
type BuildEstimator struct {
	diskPath string
}

// NewBuildEstimator creates a new build estimator watching the given
// mount point (defaults to "/")
func NewBuildEstimator(diskPath string) *BuildEstimator {
	if diskPath == "" {
		diskPath = "/"
	}
	return &BuildEstimator{diskPath: diskPath}
}

// Estimate predicts the bake duration for an artifact on this host
func (e *BuildEstimator) Estimate(ctx context.Context, recipe *entities.ImageRecipe, artifact *entities.Artifact) (*entities.BuildEstimate, error) {
	cpuCount, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count CPUs: %w", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory stats: %w", err)
	}

	du, err := disk.UsageWithContext(ctx, e.diskPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read disk stats for %s: %w", e.diskPath, err)
	}

	diskFactor := recipe.Installer.DiskFactor
	if diskFactor == 0 {
		diskFactor = defaultDiskFactor
	}

	return EstimateFromStats(artifact.Size, cpuCount, vm.Available, du.Free, diskFactor), nil
}

// EstimateFromStats computes the heuristic from explicit inputs.
// Deterministic so the arithmetic stays testable without real hardware.
func EstimateFromStats(artifactSize int64, cpuCount int, memAvailable, diskFree uint64, diskFactor int) *entities.BuildEstimate {
	estimate := &entities.BuildEstimate{
		CPUCount:     cpuCount,
		MemAvailable: memAvailable,
		DiskFree:     diskFree,
	}

	if artifactSize > 0 {
		estimate.DiskRequired = uint64(artifactSize) * uint64(diskFactor)
		ioTime := time.Duration(artifactSize * ioPasses / assumedDiskThroughput * int64(time.Second))
		estimate.Duration = ioTime + fixedOverhead
	} else {
		estimate.Duration = fixedOverhead
	}

	if !estimate.DiskSufficient() {
		estimate.Warnings = append(estimate.Warnings,
			fmt.Sprintf("insufficient disk: %d GiB free, need %d GiB (%dx artifact size)",
				diskFree>>30, estimate.DiskRequired>>30, diskFactor))
	}

	if memAvailable < minComfortableMem {
		estimate.Warnings = append(estimate.Warnings,
			fmt.Sprintf("low memory: %d GiB available, installer is happier with %d GiB",
				memAvailable>>30, uint64(minComfortableMem)>>30))
		// Swapping roughly doubles wall time in practice
		estimate.Duration *= 2
	}

	if cpuCount > 0 && cpuCount < 4 {
		estimate.Warnings = append(estimate.Warnings,
			fmt.Sprintf("only %d CPUs; package installs will serialize", cpuCount))
	}

	return estimate
}

package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/kilnworks/kiln/internal/domain/entities"
	"github.com/kilnworks/kiln/internal/domain/interfaces"
)

// ResourceSampler periodically snapshots host memory, disk, and load and
// appends the records to a log file while a build runs.
//
// It shares no mutable state with the rest of the pipeline; cancelling the
// context it runs under is the only way to stop it, checked at every tick.
type ResourceSampler struct {
	interval time.Duration
	logPath  string
	diskPath string
	logger   interfaces.Logger
}

// SamplerConfig configures a resource sampler
type SamplerConfig struct {
	Interval time.Duration // defaults to 30s
	LogPath  string        // file the JSON-line records are appended to
	DiskPath string        // mount point to watch; defaults to "/"
	Logger   interfaces.Logger
}

// NewResourceSampler creates a new resource sampler
func NewResourceSampler(config SamplerConfig) *ResourceSampler {
	interval := config.Interval
	if interval == 0 {
		interval = 30 * time.Second
	}
	diskPath := config.DiskPath
	if diskPath == "" {
		diskPath = "/"
	}
	logger := config.Logger
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	return &ResourceSampler{
		interval: interval,
		logPath:  config.LogPath,
		diskPath: diskPath,
		logger:   logger,
	}
}

// Run samples until the context is cancelled. One sample is taken
// immediately so even very short builds leave a record. Individual sample
// failures are logged and skipped; the loop keeps going.
func (s *ResourceSampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.sampleOnce(ctx); err != nil {
		s.logger.Warn("resource sample failed", interfaces.F("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.sampleOnce(ctx); err != nil {
				s.logger.Warn("resource sample failed", interfaces.F("error", err.Error()))
			}
		}
	}
}

// Sample takes a single snapshot of host resources
func (s *ResourceSampler) Sample(ctx context.Context) (*entities.ResourceSample, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory stats: %w", err)
	}

	du, err := disk.UsageWithContext(ctx, s.diskPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read disk stats for %s: %w", s.diskPath, err)
	}

	sample := &entities.ResourceSample{
		Timestamp:    time.Now().UTC(),
		MemTotal:     vm.Total,
		MemAvailable: vm.Available,
		MemUsedPct:   vm.UsedPercent,
		DiskTotal:    du.Total,
		DiskFree:     du.Free,
		DiskUsedPct:  du.UsedPercent,
	}

	// Load average is best-effort; not every platform reports it
	if avg, err := load.AvgWithContext(ctx); err == nil {
		sample.Load1 = avg.Load1
	}

	return sample, nil
}

func (s *ResourceSampler) sampleOnce(ctx context.Context) error {
	sample, err := s.Sample(ctx)
	if err != nil {
		return err
	}
	return s.append(sample)
}

// append writes one JSON-line record to the sampler log
func (s *ResourceSampler) append(sample *entities.ResourceSample) error {
	if s.logPath == "" {
		return nil
	}

	line, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to encode sample: %w", err)
	}

	//nolint:gosec // G304: log path comes from caller configuration
	f, err := os.OpenFile(s.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("failed to open sampler log: %w", err)
	}

	_, err = f.Write(append(line, '\n'))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to append sample: %w", err)
	}
	return nil
}

package health

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Sampler returns a point-in-time resource snapshot. A partial snapshot
// has nil sections and is returned together with the errors that caused
// them.
type Sampler interface {
	Sample(ctx context.Context) (*SystemSnapshot, error)
}

// SystemSnapshot holds host resource usage.
type SystemSnapshot struct {
	Platform   string
	CPUPercent *float64
	Memory     *MemoryStats
	Disk       *DiskStats
}

// MemoryStats is virtual memory usage.
type MemoryStats struct {
	TotalBytes     uint64
	AvailableBytes uint64
	UsedPercent    float64
}

// DiskStats is usage of one filesystem.
type DiskStats struct {
	TotalBytes  uint64
	FreeBytes   uint64
	UsedPercent float64
}

// Missing lists the sections that could not be sampled.
func (s *SystemSnapshot) Missing() []string {
	var missing []string
	if s.Platform == "" {
		missing = append(missing, "platform")
	}
	if s.CPUPercent == nil {
		missing = append(missing, "cpu")
	}
	if s.Memory == nil {
		missing = append(missing, "memory")
	}
	if s.Disk == nil {
		missing = append(missing, "disk")
	}
	return missing
}

// DefaultCPUInterval is the CPU measurement window.
const DefaultCPUInterval = time.Second

// PSUtilSampler samples the host with gopsutil.
type PSUtilSampler struct {
	// DiskPath is the mount point whose usage is reported. Defaults to "/".
	DiskPath string

	// CPUInterval is how long CPU usage is measured over. A negative value
	// compares against the previous call instead of blocking.
	CPUInterval time.Duration
}

// NewPSUtilSampler creates a sampler with defaults applied.
func NewPSUtilSampler(diskPath string, cpuInterval time.Duration) *PSUtilSampler {
	if diskPath == "" {
		diskPath = "/"
	}
	if cpuInterval == 0 {
		cpuInterval = DefaultCPUInterval
	}
	return &PSUtilSampler{DiskPath: diskPath, CPUInterval: cpuInterval}
}

// Sample implements Sampler.
func (s *PSUtilSampler) Sample(ctx context.Context) (*SystemSnapshot, error) {
	snap := &SystemSnapshot{}
	var errs []error

	if info, err := host.InfoWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("platform: %w", err))
	} else {
		snap.Platform = fmt.Sprintf("%s-%s-%s", info.OS, info.KernelVersion, info.KernelArch)
	}

	interval := s.CPUInterval
	if interval < 0 {
		interval = 0
	}
	if pct, err := cpu.PercentWithContext(ctx, interval, false); err != nil {
		errs = append(errs, fmt.Errorf("cpu: %w", err))
	} else if len(pct) == 0 {
		errs = append(errs, errors.New("cpu: no samples"))
	} else {
		v := round2(pct[0])
		snap.CPUPercent = &v
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("memory: %w", err))
	} else {
		snap.Memory = &MemoryStats{
			TotalBytes:     vm.Total,
			AvailableBytes: vm.Available,
			UsedPercent:    round2(vm.UsedPercent),
		}
	}

	path := s.DiskPath
	if path == "" {
		path = "/"
	}
	if du, err := disk.UsageWithContext(ctx, path); err != nil {
		errs = append(errs, fmt.Errorf("disk: %w", err))
	} else {
		snap.Disk = &DiskStats{
			TotalBytes:  du.Total,
			FreeBytes:   du.Free,
			UsedPercent: usedPercent(du.Used, du.Total),
		}
	}

	return snap, errors.Join(errs...)
}

// usedPercent is used/total, not gopsutil's used/(used+free), so reserved
// blocks count against the disk.
func usedPercent(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(used) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

const bytesPerGB = 1 << 30

// gigabytes converts bytes to GiB rounded to two decimals.
func gigabytes(b uint64) float64 {
	return round2(float64(b) / bytesPerGB)
}

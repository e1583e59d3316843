package backend

import (
	"context"
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/ftahirops/healtop/model"
)

// ProcessInfo is one row of a top-N process listing.
type ProcessInfo struct {
	PID     int32
	User    string
	CPU     float64
	Mem     float64
	Command string
}

// SortBy selects the ranking of a process listing.
type SortBy int

const (
	ByCPU SortBy = iota
	ByMemory
)

// Source supplies host data to the reference backend.
type Source interface {
	Metrics(ctx context.Context) (model.Metrics, error)
	TopProcesses(ctx context.Context, by SortBy, limit int) ([]ProcessInfo, error)
	LargeFiles(ctx context.Context) ([]model.FileEntry, error)
}

// HostSource reads the local host through gopsutil.
type HostSource struct {
	DiskPath string
	Files    *BigFileScanner
}

// NewHostSource creates a HostSource reporting disk usage for diskPath.
func NewHostSource(diskPath string, roots []string) *HostSource {
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostSource{DiskPath: diskPath, Files: &BigFileScanner{Roots: roots}}
}

func (h *HostSource) Metrics(ctx context.Context) (model.Metrics, error) {
	var m model.Metrics

	pcts, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return m, errors.Wrap(err, "cpu percent")
	}
	if len(pcts) > 0 {
		m.CPU = round1(pcts[0])
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return m, errors.Wrap(err, "virtual memory")
	}
	m.Memory = round1(vm.UsedPercent)

	du, err := disk.UsageWithContext(ctx, h.DiskPath)
	if err != nil {
		return m, errors.Wrapf(err, "disk usage %s", h.DiskPath)
	}
	m.Disk = round1(du.UsedPercent)
	return m, nil
}

func (h *HostSource) TopProcesses(ctx context.Context, by SortBy, limit int) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list processes")
	}

	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		cpuPct, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			continue
		}
		memPct, err := p.MemoryPercentWithContext(ctx)
		if err != nil {
			continue
		}
		user, _ := p.UsernameWithContext(ctx)
		cmdline, _ := p.CmdlineWithContext(ctx)
		if cmdline == "" {
			cmdline, _ = p.NameWithContext(ctx)
		}
		out = append(out, ProcessInfo{
			PID:     p.Pid,
			User:    user,
			CPU:     round1(cpuPct),
			Mem:     round1(float64(memPct)),
			Command: cmdline,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if by == ByMemory {
			return out[i].Mem > out[j].Mem
		}
		return out[i].CPU > out[j].CPU
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *HostSource) LargeFiles(ctx context.Context) ([]model.FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.Files.Scan(), nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

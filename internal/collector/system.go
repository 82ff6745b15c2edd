package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/socaudit/internal/model"
)

// BootTimeLayout is the layout of SystemInfo.BootTime (local time, no zone).
const BootTimeLayout = "2006-01-02T15:04:05"

// SystemOptions configures CollectSystem.
type SystemOptions struct {
	// CPUSampleInterval is how long CPU usage is sampled for.
	CPUSampleInterval time.Duration

	// DiskPath is the volume whose usage is reported.
	DiskPath string
}

// CollectSystem reads host metrics from src. Metrics that fail are left
// zero-valued and their errors are listed in SystemInfo.Errors.
func CollectSystem(ctx context.Context, src Source, opts SystemOptions) model.SystemInfo {
	info := model.SystemInfo{Users: []model.UserSession{}}

	record := func(what string, err error) {
		info.Errors = append(info.Errors, fmt.Sprintf("%s: %v", what, err))
	}

	if n, err := src.CPUCount(ctx); err != nil {
		record("cpu_count", err)
	} else {
		info.CPUCount = n
	}

	if pct, err := src.CPUPercent(ctx, opts.CPUSampleInterval); err != nil {
		record("cpu_percent", err)
	} else {
		info.CPUPercent = pct
	}

	if m, err := src.VirtualMemory(ctx); err != nil {
		record("memory", err)
	} else {
		info.Memory = m
	}

	if s, err := src.SwapMemory(ctx); err != nil {
		record("swap", err)
	} else {
		info.Swap = s
	}

	if d, err := src.DiskUsage(ctx, opts.DiskPath); err != nil {
		record("disk_usage", err)
	} else {
		info.DiskUsage = d
	}

	if bt, err := src.BootTime(ctx); err != nil {
		record("boot_time", err)
	} else {
		info.BootTime = bt.Local().Format(BootTimeLayout)
	}

	if users, err := src.Users(ctx); err != nil {
		record("users", err)
	} else if users != nil {
		info.Users = users
	}

	return info
}

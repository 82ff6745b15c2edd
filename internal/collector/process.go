package collector

import (
	"context"
	"fmt"
	"sort"

	"github.com/nao1215/socaudit/internal/model"
)

// CollectProcesses returns the limit busiest processes by CPU usage,
// highest first. Ties keep PID order so the output is stable.
func CollectProcesses(ctx context.Context, src Source, limit int) (model.ProcessList, error) {
	procs, err := src.Processes(ctx)
	if err != nil {
		return model.ProcessList{TopProcesses: []model.ProcessInfo{}}, fmt.Errorf("failed to list processes: %w", err)
	}

	sort.SliceStable(procs, func(i, j int) bool {
		if procs[i].CPUPercent != procs[j].CPUPercent {
			return procs[i].CPUPercent > procs[j].CPUPercent
		}
		return procs[i].PID < procs[j].PID
	})

	if limit >= 0 && len(procs) > limit {
		procs = procs[:limit]
	}
	if procs == nil {
		procs = []model.ProcessInfo{}
	}
	return model.ProcessList{TopProcesses: procs}, nil
}

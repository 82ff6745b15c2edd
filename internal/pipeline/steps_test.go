package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/socaudit/internal/collector"
	"github.com/nao1215/socaudit/internal/model"
)

// stubSource is a collector.Source returning fixed data.
type stubSource struct {
	procErr error
}

func (stubSource) CPUCount(context.Context) (int, error) { return 4, nil }
func (stubSource) CPUPercent(context.Context, time.Duration) (float64, error) {
	return 25, nil
}
func (stubSource) VirtualMemory(context.Context) (model.MemoryInfo, error) {
	return model.MemoryInfo{Total: 8 << 30}, nil
}
func (stubSource) SwapMemory(context.Context) (model.SwapInfo, error) { return model.SwapInfo{}, nil }
func (stubSource) DiskUsage(_ context.Context, path string) (model.DiskUsageInfo, error) {
	return model.DiskUsageInfo{Path: path}, nil
}
func (stubSource) BootTime(context.Context) (time.Time, error) { return time.Unix(0, 0), nil }
func (stubSource) Users(context.Context) ([]model.UserSession, error) {
	return []model.UserSession{}, nil
}
func (stubSource) Connections(context.Context) ([]model.Connection, error) {
	return []model.Connection{{Status: "ESTABLISHED", PID: 42}}, nil
}
func (s stubSource) Processes(context.Context) ([]model.ProcessInfo, error) {
	if s.procErr != nil {
		return nil, s.procErr
	}
	return []model.ProcessInfo{
		{PID: 1, Name: "init", CPUPercent: 0.1},
		{PID: 2, Name: "worker", CPUPercent: 80},
		{PID: 3, Name: "shell", CPUPercent: 1},
	}, nil
}

// stubSysmon is a sysmonCollector returning fixed logs.
type stubSysmon struct {
	logs model.SysmonLogs
}

func (s stubSysmon) Collect(context.Context) model.SysmonLogs {
	return s.logs
}

func TestSteps(t *testing.T) {
	t.Parallel()

	t.Run("system step fills the system section", func(t *testing.T) {
		t.Parallel()

		snapshot := model.NewSnapshot()
		step := NewSystemStep(stubSource{}, collectorOptions("/data"))

		if err := step.Do(context.Background(), snapshot); err != nil {
			t.Fatalf("Do: %v", err)
		}
		if step.Name() != "system" {
			t.Errorf("Name() = %q", step.Name())
		}
		if snapshot.System.CPUCount != 4 || snapshot.System.DiskUsage.Path != "/data" {
			t.Errorf("System = %+v", snapshot.System)
		}
	})

	t.Run("network step fills the network section", func(t *testing.T) {
		t.Parallel()

		snapshot := model.NewSnapshot()
		step := NewNetworkStep(stubSource{})

		if err := step.Do(context.Background(), snapshot); err != nil {
			t.Fatalf("Do: %v", err)
		}
		if step.Name() != "network" || len(snapshot.Network.Connections) != 1 {
			t.Errorf("Network = %+v", snapshot.Network)
		}
	})

	t.Run("process step keeps the busiest processes", func(t *testing.T) {
		t.Parallel()

		snapshot := model.NewSnapshot()
		step := NewProcessStep(stubSource{}, 2)

		if err := step.Do(context.Background(), snapshot); err != nil {
			t.Fatalf("Do: %v", err)
		}
		top := snapshot.Processes.TopProcesses
		if step.Name() != "processes" || len(top) != 2 || top[0].Name != "worker" {
			t.Errorf("TopProcesses = %+v", top)
		}
	})

	t.Run("process step returns listing errors", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("denied")
		err := NewProcessStep(stubSource{procErr: wantErr}, 2).Do(context.Background(), model.NewSnapshot())

		if !errors.Is(err, wantErr) {
			t.Errorf("expected %v, got %v", wantErr, err)
		}
	})

	t.Run("sysmon step stores the reader result", func(t *testing.T) {
		t.Parallel()

		snapshot := model.NewSnapshot()
		logs := model.SysmonLogs{Events: []model.SysmonEvent{}, Error: "Sysmon log not found: x"}
		step := NewSysmonStep(stubSysmon{logs: logs}, nil)

		if err := step.Do(context.Background(), snapshot); err != nil {
			t.Fatalf("Do: %v", err)
		}
		if step.Name() != "sysmon" || snapshot.Sysmon.Error != logs.Error {
			t.Errorf("Sysmon = %+v", snapshot.Sysmon)
		}
	})
}

func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("wires the four steps in order", func(t *testing.T) {
		t.Parallel()

		p := DefaultPipeline(stubSource{}, nil)

		want := []string{"system", "network", "processes", "sysmon"}
		got := p.StepNames()
		if len(got) != len(want) {
			t.Fatalf("StepNames() = %v", got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("step %d = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("collects a complete snapshot", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(t.TempDir(), "Sysmon.evtx")
		p := DefaultPipeline(stubSource{}, []Option{WithContinueOnError(true)},
			WithPipelineCPUSampleInterval(0),
			WithPipelineDiskPath("/"),
			WithPipelineProcessLimit(1),
			WithPipelineSysmon(missing, 24, 10),
		)

		snapshot := model.NewSnapshot()
		if err := p.Execute(context.Background(), snapshot); err != nil {
			t.Fatalf("Execute: %v", err)
		}

		if len(snapshot.PerformedSteps) != 4 {
			t.Errorf("PerformedSteps = %v", snapshot.PerformedSteps)
		}
		if len(snapshot.Processes.TopProcesses) != 1 {
			t.Errorf("process limit not applied: %+v", snapshot.Processes)
		}
		if snapshot.Sysmon.Error != "Sysmon log not found: "+missing {
			t.Errorf("Sysmon.Error = %q", snapshot.Sysmon.Error)
		}
	})
}

func TestDefaultPipelineConfig(t *testing.T) {
	t.Parallel()

	cfg := &DefaultPipelineConfig{}
	for _, opt := range []DefaultPipelineOption{
		WithPipelineCPUSampleInterval(2 * time.Second),
		WithPipelineDiskPath("D:\\"),
		WithPipelineProcessLimit(7),
		WithPipelineSysmon("sysmon.evtx", 6, 9),
		WithPipelineStepLogger(nil),
	} {
		opt(cfg)
	}

	if cfg.CPUSampleInterval != 2*time.Second || cfg.DiskPath != "D:\\" || cfg.ProcessLimit != 7 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.SysmonPath != "sysmon.evtx" || cfg.Hours != 6 || cfg.MaxSysmonEvents != 9 {
		t.Errorf("unexpected sysmon config: %+v", cfg)
	}
}

func collectorOptions(disk string) collector.SystemOptions {
	return collector.SystemOptions{DiskPath: disk}
}

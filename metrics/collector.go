package metrics

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const gib = 1024 * 1024 * 1024

// HostMetric 触发进程所在主机的资源快照，供健康检查展示。
type HostMetric struct {
	Hostname       string  `json:"hostname"`
	UptimeSeconds  uint64  `json:"uptimeSeconds"`
	CPULoad        float64 `json:"cpuLoad"`
	CPUProcessors  int     `json:"cpuProcessors"`
	DiskTotalGB    float64 `json:"diskTotalGB"`
	DiskUsageRatio float64 `json:"diskUsage"`
	MemTotalGB     float64 `json:"memTotalGB"`
	ProcUsedMemGB  float64 `json:"procUsedMemGB"`
	Goroutines     int     `json:"goroutines"`
}

// CollectHostMetric 采集系统/进程指标；单项失败时保留零值，不返回错误。
func CollectHostMetric(ctx context.Context) HostMetric {
	out := HostMetric{CPUProcessors: runtime.NumCPU(), Goroutines: runtime.NumGoroutine()}
	if info, err := host.InfoWithContext(ctx); err == nil {
		out.Hostname = info.Hostname
		out.UptimeSeconds = info.Uptime
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		out.CPULoad = avg.Load1
	}
	if du, err := disk.UsageWithContext(ctx, "/"); err == nil && du.Total > 0 {
		out.DiskTotalGB = float64(du.Total) / gib
		out.DiskUsageRatio = du.UsedPercent / 100.0
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm.Total > 0 {
		out.MemTotalGB = float64(vm.Total) / gib
	}
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if pm, err := p.MemoryInfoWithContext(ctx); err == nil && pm != nil {
			out.ProcUsedMemGB = float64(pm.RSS) / gib
		}
	}
	return out
}

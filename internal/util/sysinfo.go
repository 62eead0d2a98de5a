package util

import (
	"os"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo describes the host, included as metadata in telemetry
// messages.
type SystemInfo struct {
	Hostname    string `json:"hostname"`
	Platform    string `json:"platform"`
	CPUModel    string `json:"cpu_model"`
	CPUCores    int    `json:"cpu_cores"`
	TotalMemory uint64 `json:"memory_mb"`
}

// GetSystemInfo collects host information. Fields that cannot be read
// are left at their zero value rather than failing the caller.
func GetSystemInfo() SystemInfo {
	info := SystemInfo{}

	info.Hostname, _ = os.Hostname()

	if hostInfo, err := host.Info(); err == nil {
		info.Platform = hostInfo.Platform
	}

	if cpuInfo, err := cpu.Info(); err == nil && len(cpuInfo) > 0 {
		info.CPUModel = cpuInfo[0].ModelName
	}
	if cores, err := cpu.Counts(true); err == nil {
		info.CPUCores = cores
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = vm.Total / (1024 * 1024)
	}

	return info
}

package api

import (
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sanamente/catalogd/internal/webserver"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

var startedAt = time.Now()

func registerSystemRoutes() {
	webserver.PubGET("/system/health", health)
}

func health(c echo.Context) error {
	status := echo.Map{
		"status":     "ok",
		"uptime_sec": int64(time.Since(startedAt).Seconds()),
		"goroutines": runtime.NumGoroutine(),
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status["mem_used_percent"] = vm.UsedPercent
	}
	return ok(c, status)
}

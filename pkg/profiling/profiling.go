package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/labstack/echo/v4"
)

const bytesPerMB = 1024 * 1024

// RegisterRoutes mounts the pprof handlers under /debug/pprof and a
// memory snapshot under /debug/memory.
func RegisterRoutes(e *echo.Echo) {
	g := e.Group("/debug/pprof")
	g.GET("/", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	g.GET("/cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	g.GET("/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	g.GET("/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	g.GET("/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		g.GET("/"+name, echo.WrapHandler(pprof.Handler(name)))
	}

	e.GET("/debug/memory", func(c echo.Context) error {
		return c.JSON(http.StatusOK, ReadMemoryStats())
	})
}

// MemoryStats is a compact view of runtime.MemStats
type MemoryStats struct {
	AllocMB     float64 `json:"alloc_mb"`
	SysMB       float64 `json:"sys_mb"`
	HeapInUseMB float64 `json:"heap_in_use_mb"`
	NumGC       uint32  `json:"num_gc"`
	Goroutines  int     `json:"goroutines"`
}

func ReadMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocMB:     float64(m.Alloc) / bytesPerMB,
		SysMB:       float64(m.Sys) / bytesPerMB,
		HeapInUseMB: float64(m.HeapInuse) / bytesPerMB,
		NumGC:       m.NumGC,
		Goroutines:  runtime.NumGoroutine(),
	}
}

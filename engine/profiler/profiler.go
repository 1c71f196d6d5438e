// Package profiler reports frame rate, draw counts and memory statistics through the engine logger.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
)

// Report is one interval's worth of statistics.
type Report struct {
	Frames      int
	FPS         float64
	DrawCalls   int
	Dispatches  int
	Passes      int
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	MaxPauseUs  uint64
	SysMB       float64
}

// Profiler tracks frame rate, renderer work and memory statistics for performance monitoring.
// Outputs a report to the logger at a configurable interval.
type Profiler struct {
	frameCount     int
	drawCalls      int
	dispatches     int
	passes         int
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Report
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per rendered frame with the renderer's stats for that frame.
// Logs a report when the update interval has elapsed.
//
// Parameters:
//   - stats: the counters of the frame that just completed
//
// Returns:
//   - bool: true if a report was produced this tick, false otherwise
func (p *Profiler) Tick(stats renderer.FrameStats) bool {
	p.frameCount++
	p.drawCalls += stats.DrawCalls
	p.dispatches += stats.Dispatches
	p.passes += stats.RenderPass + stats.ComputePass

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	gcCount := p.memStats.NumGC

	// PauseNs is a circular buffer of the last 256 GC pauses.
	var maxPauseUs uint64
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	for i := startIdx; i < gcCount; i++ {
		maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	seconds := elapsed.Seconds()
	p.last = Report{
		Frames:      p.frameCount,
		FPS:         float64(p.frameCount) / seconds,
		DrawCalls:   p.drawCalls,
		Dispatches:  p.dispatches,
		Passes:      p.passes,
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / seconds,
		GCCount:     gcCount,
		MaxPauseUs:  maxPauseUs,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
	}

	common.Logger().Info("profiler",
		"fps", p.last.FPS,
		"draw_calls", p.last.DrawCalls,
		"dispatches", p.last.Dispatches,
		"passes", p.last.Passes,
		"heap_mb", p.last.HeapMB,
		"alloc_rate_mb", p.last.AllocRateMB,
		"gc", p.last.GCCount,
		"gc_max_pause_us", p.last.MaxPauseUs,
		"sys_mb", p.last.SysMB,
	)

	p.frameCount = 0
	p.drawCalls = 0
	p.dispatches = 0
	p.passes = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recent report, or the zero Report before the first interval elapses.
func (p *Profiler) Last() Report {
	return p.last
}

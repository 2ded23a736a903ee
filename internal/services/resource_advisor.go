package services

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"github.com/edgetier/edgetier-ai-go/internal/config"
)

// memoryPressureThreshold halves the worker recommendation when crossed.
const memoryPressureThreshold = 85.0

// ResourceAdvisor sizes the optimizer worker pool from the machine it runs
// on: core count as the baseline, scaled back under CPU or memory pressure.
type ResourceAdvisor struct {
	minWorkers int
	maxWorkers int
	logger     *logrus.Logger
}

// NewResourceAdvisor creates an advisor bounded by the configured worker range.
func NewResourceAdvisor(cfg config.OptimizerConfig, logger *logrus.Logger) *ResourceAdvisor {
	minWorkers := cfg.MinWorkers
	if minWorkers <= 0 {
		minWorkers = 1
	}
	maxWorkers := cfg.MaxWorkers
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}
	return &ResourceAdvisor{
		minWorkers: minWorkers,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// RecommendWorkers returns the worker count for a sweep. Failures to sample
// system metrics fall back to the logical core count.
func (a *ResourceAdvisor) RecommendWorkers() int {
	workers := runtime.NumCPU()
	if counts, err := cpu.Counts(true); err == nil && counts > 0 {
		workers = counts
	}

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		// Leave headroom on an already-busy machine.
		if percents[0] > 80 {
			workers = workers / 2
		}
	}

	if vm, err := mem.VirtualMemory(); err == nil && vm.UsedPercent > memoryPressureThreshold {
		workers = workers / 2
	}

	if workers < a.minWorkers {
		workers = a.minWorkers
	}
	if workers > a.maxWorkers {
		workers = a.maxWorkers
	}

	a.logger.WithField("workers", workers).Debug("Resource advisor worker recommendation")
	return workers
}

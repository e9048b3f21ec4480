package metrics

import (
	"sync/atomic"
	"time"
)

// SearchMetric summarizes one planning call.
type SearchMetric struct {
	StartTime    time.Time
	Duration     time.Duration
	Simulations  int
	Sweeps       int
	FullRollouts int // rollouts that reached a terminal state before the horizon
	TreeReused   bool
	TreeSize     int
}

type Collector interface {
	Start()
	AddSimulation()
	AddSweep()
	AddFullRollout()
	SetTreeReuse(reused bool)
	SetTreeSize(size int)
	Complete() SearchMetric
}

type collector struct {
	startTime    time.Time
	simulations  atomic.Int64
	sweeps       atomic.Int64
	fullRollouts atomic.Int64
	treeReused   atomic.Bool
	treeSize     atomic.Int64
}

func NewCollector() Collector {
	return &collector{}
}

func (c *collector) Start() {
	c.startTime = time.Now()
	c.simulations.Store(0)
	c.sweeps.Store(0)
	c.fullRollouts.Store(0)
	c.treeReused.Store(false)
	c.treeSize.Store(0)
}

func (c *collector) AddSimulation() {
	c.simulations.Add(1)
}

func (c *collector) AddSweep() {
	c.sweeps.Add(1)
}

func (c *collector) AddFullRollout() {
	c.fullRollouts.Add(1)
}

func (c *collector) SetTreeReuse(reused bool) {
	c.treeReused.Store(reused)
}

func (c *collector) SetTreeSize(size int) {
	c.treeSize.Store(int64(size))
}

func (c *collector) Complete() SearchMetric {
	return SearchMetric{
		StartTime:    c.startTime,
		Duration:     time.Since(c.startTime),
		Simulations:  int(c.simulations.Load()),
		Sweeps:       int(c.sweeps.Load()),
		FullRollouts: int(c.fullRollouts.Load()),
		TreeReused:   c.treeReused.Load(),
		TreeSize:     int(c.treeSize.Load()),
	}
}

type nopCollector struct{}

func NewNopCollector() Collector {
	return nopCollector{}
}

func (nopCollector) Start()                 {}
func (nopCollector) AddSimulation()         {}
func (nopCollector) AddSweep()              {}
func (nopCollector) AddFullRollout()        {}
func (nopCollector) SetTreeReuse(bool)      {}
func (nopCollector) SetTreeSize(int)        {}
func (nopCollector) Complete() SearchMetric { return SearchMetric{} }

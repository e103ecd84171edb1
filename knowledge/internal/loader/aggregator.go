//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package loader

import (
	"time"

	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

const (
	chanBufferSize    = 1024
	heartbeatInterval = 30 * time.Second
)

// Progress reports chunks stored so far.
type Progress struct {
	Stored int
	Total  int
}

// Aggregator collects size and progress events from ingestion workers and
// logs them from a single goroutine, so workers never share counters.
type Aggregator struct {
	sizeCh chan int
	progCh chan Progress
	done   chan struct{}
	stats  *Stats
}

// NewAggregator starts the collecting goroutine. Progress is logged every
// step stored chunks and at completion when showProgress is set. Close must
// be called to stop it.
func NewAggregator(buckets []int, showProgress bool, step int) *Aggregator {
	if step <= 0 {
		step = 1
	}
	ag := &Aggregator{
		sizeCh: make(chan int, chanBufferSize),
		progCh: make(chan Progress, chanBufferSize),
		done:   make(chan struct{}),
		stats:  NewStats(buckets),
	}
	go ag.run(showProgress, step)
	return ag
}

func (a *Aggregator) run(showProgress bool, step int) {
	defer close(a.done)
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	sizeCh, progCh := a.sizeCh, a.progCh
	last := 0
	for sizeCh != nil || progCh != nil {
		select {
		case size, ok := <-sizeCh:
			if !ok {
				sizeCh = nil
				continue
			}
			a.stats.Add(size)
		case p, ok := <-progCh:
			if !ok {
				progCh = nil
				continue
			}
			if !showProgress || p.Stored == last {
				continue
			}
			if p.Stored/step != last/step || p.Stored == p.Total {
				log.Infof("loader: stored %d/%d chunk(s)", p.Stored, p.Total)
			}
			last = p.Stored
		case <-ticker.C:
			if showProgress {
				log.Infof("loader: still running")
			}
		}
	}
}

// Size records the size of one chunk.
func (a *Aggregator) Size(runes int) { a.sizeCh <- runes }

// Progress records ingestion progress.
func (a *Aggregator) Progress(p Progress) { a.progCh <- p }

// Close flushes pending events and returns the collected statistics.
func (a *Aggregator) Close() *Stats {
	close(a.sizeCh)
	close(a.progCh)
	<-a.done
	return a.stats
}

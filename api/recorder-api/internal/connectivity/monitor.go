// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/murmurai/api/recorder-api/config"
	"github.com/murmurai/pkg/commons"
)

// Monitor watches network reachability with a lightweight periodic probe and
// notifies subscribers on offline-to-online transitions. Online is also
// usable synchronously as the worker's pre-flight gate.
type Monitor struct {
	logger   commons.Logger
	client   *resty.Client
	probeURL string
	interval time.Duration

	mu          sync.Mutex
	online      bool
	known       bool
	subscribers []func(online bool)

	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(logger commons.Logger, cfg config.ConnectivityConfig) *Monitor {
	client := resty.New().
		SetTimeout(cfg.ProbeTimeout()).
		SetRetryCount(0)
	return &Monitor{
		logger:   logger,
		client:   client,
		probeURL: cfg.ProbeURL,
		interval: cfg.ProbeInterval(),
	}
}

// Subscribe registers a callback invoked on every reachability transition.
// Callbacks run on the monitor goroutine and must not block.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Online probes reachability right now and records the result, folding
// on-demand checks into the same transition stream as the periodic loop.
func (m *Monitor) Online(ctx context.Context) bool {
	online := m.probe(ctx)
	m.record(online)
	return online
}

func (m *Monitor) probe(ctx context.Context) bool {
	resp, err := m.client.R().SetContext(ctx).Get(m.probeURL)
	if err != nil {
		return false
	}
	return resp.StatusCode() < 500
}

// record updates the cached state and fires subscribers on a transition.
// Repeated probes with the same result are de-duplicated.
func (m *Monitor) record(online bool) {
	m.mu.Lock()
	if m.known && m.online == online {
		m.mu.Unlock()
		return
	}
	transitioned := m.known
	m.known = true
	m.online = online
	subscribers := make([]func(bool), len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()

	if transitioned {
		m.logger.Infof("connectivity: network is now %s", stateName(online))
	} else {
		m.logger.Debugf("connectivity: initial network state %s", stateName(online))
	}
	for _, fn := range subscribers {
		fn(online)
	}
}

// Start launches the periodic probe loop.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		cancel()
		return
	}
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.record(m.probe(ctx))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.record(m.probe(ctx))
			}
		}
	}()
}

// Stop halts the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func stateName(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

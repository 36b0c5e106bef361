// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pipeline runs the live classification loop: two sources fill the
// sample window, a ticker runs the cascade, smooths the result and hands
// the labels to the log writer and to subscribers.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/cascade"
	"github.com/relabs-tech/activity_monitor/internal/category"
	"github.com/relabs-tech/activity_monitor/internal/features"
	"github.com/relabs-tech/activity_monitor/internal/imu"
	"github.com/relabs-tech/activity_monitor/internal/logstore"
	"github.com/relabs-tech/activity_monitor/internal/smoothing"
	"github.com/relabs-tech/activity_monitor/internal/window"
)

// Defaults used when Options leaves a field at zero.
const (
	DefaultInterval   = 500 * time.Millisecond
	DefaultWindowSize = 51
	DefaultLogQueue   = 64
)

var (
	// ErrNoRecorder is returned when recording is requested without a log store.
	ErrNoRecorder = errors.New("pipeline has no recorder")
	// ErrStopped is returned by operations after Stop.
	ErrStopped = errors.New("pipeline stopped")
)

// Labels is the smoothed state published after every tick.
type Labels struct {
	Activity    category.Class `json:"activity"`
	Respiratory category.Class `json:"respiratory"`
	Recording   bool           `json:"recording"`
	Session     string         `json:"session,omitempty"`
	At          time.Time      `json:"at"`
}

// Options configures a Pipeline.
type Options struct {
	Interval   time.Duration
	WindowSize int
	Depth      int
	LogQueue   int
	Recorder   *logstore.Recorder // nil disables recording
	Logger     *zap.Logger
	Now        func() time.Time
}

type logRequest struct {
	activity    category.Class
	respiratory category.Class
	close       bool
	session     string
}

// Pipeline owns the window, the smoothing histories and the log writer.
type Pipeline struct {
	win         *window.Window
	cascade     *cascade.Cascade
	activity    *smoothing.History
	respiratory *smoothing.History
	recorder    *logstore.Recorder
	logger      *zap.Logger
	interval    time.Duration
	now         func() time.Time

	// tickMu serializes ticks with recording changes and Stop.
	tickMu  sync.Mutex
	stopped bool

	mu        sync.RWMutex
	current   Labels
	recording bool
	session   string

	subsMu  sync.Mutex
	subs    map[int]chan Labels
	nextSub int

	logCh      chan logRequest
	writerDone chan struct{}
	stopCh     chan struct{}
	stopOnce   sync.Once

	lastSample [2]atomic.Int64
	dropped    atomic.Uint64
}

// New builds a pipeline and starts its log writer.
func New(c *cascade.Cascade, opts Options) (*Pipeline, error) {
	if c == nil {
		return nil, errors.New("pipeline: nil cascade")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.Depth <= 0 {
		opts.Depth = smoothing.DefaultDepth
	}
	if opts.LogQueue <= 0 {
		opts.LogQueue = DefaultLogQueue
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	win, err := window.New(opts.WindowSize, 2*imu.Axes)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		win:         win,
		cascade:     c,
		activity:    smoothing.New(category.Activity, opts.Depth),
		respiratory: smoothing.New(category.Respiratory, opts.Depth),
		recorder:    opts.Recorder,
		logger:      opts.Logger,
		interval:    opts.Interval,
		now:         opts.Now,
		subs:        make(map[int]chan Labels),
		logCh:       make(chan logRequest, opts.LogQueue),
		writerDone:  make(chan struct{}),
		stopCh:      make(chan struct{}),
		current: Labels{
			Activity:    category.Activity.Undefined(),
			Respiratory: category.Respiratory.Undefined(),
		},
	}
	go p.writeLoop()
	return p, nil
}

// OnSourceASample stores a chest triplet in the newest window row.
func (p *Pipeline) OnSourceASample(triplet [imu.Axes]float64, ts int64) error {
	return p.put(0, triplet, ts)
}

// OnSourceBSample stores a wearable triplet in the newest window row.
func (p *Pipeline) OnSourceBSample(triplet [imu.Axes]float64, ts int64) error {
	return p.put(1, triplet, ts)
}

// OnSample routes a sample by its source name.
func (p *Pipeline) OnSample(s imu.Sample) error {
	off, err := imu.Offset(s.Source)
	if err != nil {
		return err
	}
	return p.put(off/imu.Axes, s.Triplet(), s.Timestamp)
}

func (p *Pipeline) put(source int, triplet [imu.Axes]float64, ts int64) error {
	if _, err := p.win.PutAndAdvance(source*imu.Axes, triplet[:]); err != nil {
		return err
	}
	p.lastSample[source].Store(ts)
	return nil
}

// LastSample returns the timestamp of the latest sample from source A (0)
// or B (1).
func (p *Pipeline) LastSample(source int) int64 {
	if source < 0 || source >= len(p.lastSample) {
		return 0
	}
	return p.lastSample[source].Load()
}

// Run ticks until ctx is done, Stop is called or a classifier fails.
// Classifier failures are returned; the caller should then call Stop.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("pipeline running", zap.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.Tick(); err != nil {
				if errors.Is(err, ErrStopped) {
					return nil
				}
				p.logger.Error("classification failed", zap.Error(err))
				return err
			}
		}
	}
}

// Tick runs one classification step on the current window.
func (p *Pipeline) Tick() error {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()
	if p.stopped {
		return ErrStopped
	}

	snap := p.win.Snapshot()
	act, err := p.cascade.ClassifyActivity(snap)
	if err != nil {
		return err
	}
	smoothedAct := p.activity.PushMode(act)

	resp, err := p.cascade.ClassifyRespiratory(snap, smoothedAct)
	if err != nil {
		return err
	}
	smoothedResp := p.respiratory.PushMode(resp)

	p.mu.Lock()
	p.current = Labels{
		Activity:    smoothedAct,
		Respiratory: smoothedResp,
		Recording:   p.recording,
		Session:     p.session,
		At:          p.now(),
	}
	labels := p.current
	p.mu.Unlock()

	if labels.Recording {
		p.enqueue(logRequest{activity: smoothedAct, respiratory: smoothedResp, session: labels.Session})
	}
	p.publish(labels)
	return nil
}

// enqueue hands a write to the log goroutine without blocking the tick.
func (p *Pipeline) enqueue(req logRequest) {
	select {
	case p.logCh <- req:
	default:
		n := p.dropped.Add(1)
		p.logger.Warn("log queue full, label dropped",
			zap.String("activity", req.activity.Name),
			zap.Uint64("dropped", n))
	}
}

func (p *Pipeline) writeLoop() {
	defer close(p.writerDone)
	for req := range p.logCh {
		if p.recorder == nil {
			continue
		}
		var err error
		if req.close {
			err = p.recorder.Close()
		} else {
			err = p.recorder.Write(req.activity, req.respiratory)
		}
		if err != nil {
			p.logger.Error("log write failed", zap.String("session", req.session), zap.Error(err))
		}
	}
}

// CurrentActivity returns the latest smoothed activity.
func (p *Pipeline) CurrentActivity() category.Class {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.Activity
}

// CurrentRespiratory returns the latest smoothed respiratory state.
func (p *Pipeline) CurrentRespiratory() category.Class {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.Respiratory
}

// Current returns the latest published labels.
func (p *Pipeline) Current() Labels {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// WindowStats summarizes the current window contents.
func (p *Pipeline) WindowStats() features.Summary {
	return features.Summarize(p.win.Snapshot())
}

// Recording reports whether labels are being logged.
func (p *Pipeline) Recording() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.recording
}

// SetRecording starts or stops logging. Starting opens a new session;
// stopping writes Undefined to both logs so open intervals end now.
func (p *Pipeline) SetRecording(on bool) error {
	if on && p.recorder == nil {
		return ErrNoRecorder
	}
	p.tickMu.Lock()
	defer p.tickMu.Unlock()
	if p.stopped {
		return ErrStopped
	}

	p.mu.Lock()
	was := p.recording
	p.recording = on
	session := p.session
	if on && !was {
		p.session = uuid.NewString()
		session = p.session
	}
	if !on {
		p.session = ""
	}
	p.current.Recording = on
	p.current.Session = p.session
	p.mu.Unlock()

	switch {
	case on && !was:
		p.logger.Info("recording started", zap.String("session", session))
	case !on && was:
		p.logger.Info("recording stopped", zap.String("session", session))
		p.logCh <- logRequest{close: true, session: session}
	}
	return nil
}

// Subscribe returns a channel receiving the labels of every tick. Slow
// readers only see the latest value. The cancel func releases the channel.
func (p *Pipeline) Subscribe() (<-chan Labels, func()) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()

	ch := make(chan Labels, 1)
	if p.subs == nil {
		close(ch)
		return ch, func() {}
	}
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.subsMu.Lock()
			defer p.subsMu.Unlock()
			if c, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(c)
			}
		})
	}
}

func (p *Pipeline) publish(l Labels) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- l:
		default:
			// drop the stale value and retry once
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- l:
			default:
			}
		}
	}
}

// Stop ends the pipeline: it waits for an in-flight tick, closes the
// recording session, drains the log writer and closes subscriptions.
// It is safe to call more than once.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)

		p.tickMu.Lock()
		p.stopped = true
		p.mu.Lock()
		wasRecording := p.recording
		session := p.session
		p.recording = false
		p.session = ""
		p.current.Recording = false
		p.current.Session = ""
		p.mu.Unlock()
		if wasRecording {
			p.logCh <- logRequest{close: true, session: session}
		}
		close(p.logCh)
		p.tickMu.Unlock()

		<-p.writerDone

		p.subsMu.Lock()
		for id, ch := range p.subs {
			close(ch)
			delete(p.subs, id)
		}
		p.subs = nil
		p.subsMu.Unlock()

		p.logger.Info("pipeline stopped", zap.Uint64("dropped_log_writes", p.dropped.Load()))
	})
}

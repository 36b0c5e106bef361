// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/broker"
	"github.com/relabs-tech/activity_monitor/internal/config"
	"github.com/relabs-tech/activity_monitor/internal/feed"
	"github.com/relabs-tech/activity_monitor/internal/imu"
	"github.com/relabs-tech/activity_monitor/internal/ingest"
	"github.com/relabs-tech/activity_monitor/internal/logstore"
	"github.com/relabs-tech/activity_monitor/internal/pipeline"
)

const (
	// mockRate paces the mock sources at roughly 50 Hz.
	mockRate       = 20 * time.Millisecond
	connectTimeout = 10 * time.Second
)

// MonitorOptions selects the optional parts of the monitor.
type MonitorOptions struct {
	// Mock replaces the classifiers and the sensors with canned sources.
	Mock bool
	// Console prints every label change to Out.
	Console bool
	Out     io.Writer
}

// RunMonitor runs ingestion, classification, the logbook and the feeds
// until ctx is done or a component fails. On return the pipeline has
// stopped and any open recording session has been closed.
func RunMonitor(ctx context.Context, cfg *config.Config, opts MonitorOptions, logger *zap.Logger) (err error) {
	c, err := BuildCascade(cfg, opts.Mock)
	if err != nil {
		return err
	}

	recorder := logstore.NewRecorder(cfg.Logbook.Dir, logstore.WithLogger(logger))
	p, err := pipeline.New(c, pipeline.Options{
		Interval:   cfg.Interval(),
		WindowSize: cfg.Pipeline.WindowSize,
		Depth:      cfg.Pipeline.SmoothingDepth,
		LogQueue:   cfg.Pipeline.LogQueue,
		Recorder:   recorder,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		errCh   = make(chan error, 8)
		sinks   []feed.Sink
		client  mqtt.Client
		closers []func() error
		outputs []func() error
	)
	spawn := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}
	// Shutdown order: inputs first, then the pipeline, then the outputs.
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
		cancel()
		p.Stop()
		wg.Wait()
		for _, closeOutput := range outputs {
			err = multierr.Append(err, closeOutput())
		}
		if client != nil {
			client.Disconnect(broker.DisconnectQuiesce)
		}
		logger.Info("monitor stopped")
	}()

	if cfg.MQTT.Broker != "" {
		client, err = broker.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientIDMonitor, connectTimeout, logger)
		if err != nil {
			return err
		}
		if !opts.Mock {
			src := ingest.NewMQTTSource(client, cfg.MQTT.QoS, cfg.MQTT.TopicChest, cfg.MQTT.TopicWearable, logger)
			if err := src.Start(p.OnSample); err != nil {
				return err
			}
			closers = append(closers, src.Stop)
		}
		if cfg.MQTT.TopicLabels != "" {
			sinks = append(sinks, feed.NewMQTTPublisher(client, cfg.MQTT.TopicLabels, cfg.MQTT.QoS))
		}
	}

	if opts.Mock {
		for _, source := range []string{imu.SourceChest, imu.SourceWearable} {
			src := ingest.NewMockSource(source)
			spawn("mock "+source, func() error {
				return ingest.Pump(ctx, src, p.OnSample, mockRate, logger)
			})
		}
	} else if cfg.Serial.Port != "" {
		src, err := ingest.OpenSerial(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.Source, logger)
		if err != nil {
			return err
		}
		closers = append(closers, src.Close)
		spawn("serial", func() error {
			return ingest.Pump(ctx, src, p.OnSample, 0, logger)
		})
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		sinks = append(sinks, feed.NewCache(rdb, cfg.Device, cfg.RedisTTL()))
		outputs = append(outputs, rdb.Close)
	}
	if opts.Console && opts.Out != nil {
		sinks = append(sinks, NewConsoleSink(opts.Out))
	}
	if len(sinks) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			feed.Forward(ctx, p, logger, sinks...)
		}()
	}

	if cfg.Web.Port > 0 {
		srv := feed.NewServer(p, recorder, logger)
		addr := fmt.Sprintf(":%d", cfg.Web.Port)
		spawn("web", func() error {
			return srv.ListenAndServe(ctx, addr)
		})
	}

	if cfg.Logbook.RecordOnStart {
		if err := p.SetRecording(true); err != nil {
			return err
		}
	}

	spawn("pipeline", func() error {
		return p.Run(ctx)
	})
	logger.Info("monitor running",
		zap.String("device", cfg.Device),
		zap.Bool("mock", opts.Mock),
		zap.Duration("interval", cfg.Interval()),
		zap.Int("sinks", len(sinks)))

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
		return nil
	case err := <-errCh:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		logger.Error("monitor component failed", zap.Error(err))
		return err
	}
}

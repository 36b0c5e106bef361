// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ingest delivers accelerometer samples to the pipeline from MQTT,
// a serial line or a generator.
package ingest

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/imu"
)

// Handler consumes one sample. It must not block for long.
type Handler func(imu.Sample) error

// Pump reads src until ctx is done or src fails, handing every sample to h.
// A positive interval paces reads with a ticker; zero reads as fast as src
// delivers. io.EOF ends the pump without error.
func Pump(ctx context.Context, src imu.SampleSource, h Handler, interval time.Duration, logger *zap.Logger) error {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		s, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := h(s); err != nil {
			logger.Warn("sample rejected", zap.String("source", s.Source), zap.Error(err))
		}
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package feed presents the smoothed labels outside the process: a
// websocket stream, a JSON API, a Redis cache and an MQTT topic.
package feed

import (
	"context"

	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/features"
	"github.com/relabs-tech/activity_monitor/internal/pipeline"
)

// LabelSource is the part of the pipeline the feed reads.
type LabelSource interface {
	Current() pipeline.Labels
	Subscribe() (<-chan pipeline.Labels, func())
	WindowStats() features.Summary
	LastSample(source int) int64
	SetRecording(on bool) error
}

// Sink receives the labels of every tick.
type Sink interface {
	Publish(ctx context.Context, l pipeline.Labels) error
}

// Forward copies every label update to the sinks until ctx is done or the
// source closes its subscription. Sink errors are logged.
func Forward(ctx context.Context, src LabelSource, logger *zap.Logger, sinks ...Sink) {
	updates, cancel := src.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case l, ok := <-updates:
			if !ok {
				return
			}
			for _, s := range sinks {
				if err := s.Publish(ctx, l); err != nil {
					logger.Warn("label sink failed", zap.Error(err))
				}
			}
		}
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/broker"
	"github.com/relabs-tech/activity_monitor/internal/config"
	"github.com/relabs-tech/activity_monitor/internal/pipeline"
)

// FormatLabels renders one label update as a console line.
func FormatLabels(l pipeline.Labels) string {
	rec := "idle"
	if l.Recording {
		rec = "rec " + l.Session
	}
	return fmt.Sprintf("[%s] activity=%-18s respiratory=%-20s %s",
		l.At.Format("15:04:05"), l.Activity.Label, l.Respiratory.Label, rec)
}

// ConsoleSink prints a line whenever the activity or respiratory label
// changes.
type ConsoleSink struct {
	mu   sync.Mutex
	out  io.Writer
	last *pipeline.Labels
}

func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out}
}

// Publish implements feed.Sink.
func (c *ConsoleSink) Publish(_ context.Context, l pipeline.Labels) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last != nil &&
		c.last.Activity.Code == l.Activity.Code &&
		c.last.Respiratory.Code == l.Respiratory.Code &&
		c.last.Recording == l.Recording {
		return nil
	}
	c.last = &l
	_, err := fmt.Fprintln(c.out, FormatLabels(l))
	return err
}

// RunConsole subscribes to the labels topic of a running monitor and
// prints every update until ctx is done.
func RunConsole(ctx context.Context, cfg *config.Config, out io.Writer, logger *zap.Logger) error {
	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required for the console")
	}
	client, err := broker.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientIDMonitor+"-console", connectTimeout, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(broker.DisconnectQuiesce)

	sink := NewConsoleSink(out)
	token := client.Subscribe(cfg.MQTT.TopicLabels, cfg.MQTT.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		var l pipeline.Labels
		if err := json.Unmarshal(msg.Payload(), &l); err != nil {
			logger.Warn("labels unmarshal error", zap.String("topic", msg.Topic()), zap.Error(err))
			return
		}
		if err := sink.Publish(ctx, l); err != nil {
			logger.Warn("console write failed", zap.Error(err))
		}
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.MQTT.TopicLabels, err)
	}
	logger.Info("console subscribed", zap.String("topic", cfg.MQTT.TopicLabels))

	<-ctx.Done()
	logger.Info("console shutting down")
	return nil
}

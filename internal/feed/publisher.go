// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/activity_monitor/internal/pipeline"
)

// MQTTPublisher publishes labels as a retained message whenever the
// activity, respiratory state or recording flag changes.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	qos    byte

	mu   sync.Mutex
	last *pipeline.Labels
}

func NewMQTTPublisher(client mqtt.Client, topic string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, qos: qos}
}

// Publish implements Sink.
func (p *MQTTPublisher) Publish(_ context.Context, l pipeline.Labels) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != nil && sameState(*p.last, l) {
		return nil
	}

	payload, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	token := p.client.Publish(p.topic, p.qos, true, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", p.topic, err)
	}
	p.last = &l
	return nil
}

func sameState(a, b pipeline.Labels) bool {
	return a.Activity.Code == b.Activity.Code &&
		a.Respiratory.Code == b.Respiratory.Code &&
		a.Recording == b.Recording
}

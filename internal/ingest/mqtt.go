// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ingest

import (
	"encoding/json"
	"fmt"
	"sort"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/imu"
)

// MQTTSource subscribes to one topic per sample source. Payloads are
// JSON-encoded imu.Sample values; the source is taken from the topic.
type MQTTSource struct {
	client mqtt.Client
	qos    byte
	topics map[string]string // topic -> source
	logger *zap.Logger
}

// NewMQTTSource maps chestTopic to source A and wearableTopic to source B.
func NewMQTTSource(client mqtt.Client, qos byte, chestTopic, wearableTopic string, logger *zap.Logger) *MQTTSource {
	return &MQTTSource{
		client: client,
		qos:    qos,
		topics: map[string]string{
			chestTopic:    imu.SourceChest,
			wearableTopic: imu.SourceWearable,
		},
		logger: logger,
	}
}

// Start subscribes every topic. Samples are handed to h on the client's
// callback goroutine.
func (s *MQTTSource) Start(h Handler) error {
	for _, topic := range s.sortedTopics() {
		source := s.topics[topic]
		token := s.client.Subscribe(topic, s.qos, s.handler(source, h))
		token.Wait()
		if err := token.Error(); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		s.logger.Info("subscribed", zap.String("topic", topic), zap.String("source", source))
	}
	return nil
}

// Stop unsubscribes every topic.
func (s *MQTTSource) Stop() error {
	topics := s.sortedTopics()
	token := s.client.Unsubscribe(topics...)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	s.logger.Info("unsubscribed", zap.Strings("topics", topics))
	return nil
}

func (s *MQTTSource) handler(source string, h Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		sample, err := DecodeSample(msg.Payload(), source)
		if err != nil {
			s.logger.Warn("sample decode error", zap.String("topic", msg.Topic()), zap.Error(err))
			return
		}
		if err := h(sample); err != nil {
			s.logger.Warn("sample rejected", zap.String("topic", msg.Topic()), zap.Error(err))
		}
	}
}

func (s *MQTTSource) sortedTopics() []string {
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// DecodeSample parses a JSON sample and stamps it with source.
func DecodeSample(payload []byte, source string) (imu.Sample, error) {
	var sample imu.Sample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return imu.Sample{}, err
	}
	sample.Source = source
	return sample, nil
}

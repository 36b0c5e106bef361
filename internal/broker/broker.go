// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package broker connects to the MQTT broker shared by sample ingestion and
// label publishing.
package broker

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// DisconnectQuiesce is the time given to in-flight work on disconnect, in ms.
const DisconnectQuiesce = 250

// Options builds the client options used by every command.
func Options(brokerURL, clientID string, logger *zap.Logger) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.String("broker", brokerURL), zap.Error(err))
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			logger.Info("mqtt connected", zap.String("broker", brokerURL), zap.String("client_id", clientID))
		})
}

// Connect dials the broker and waits up to timeout for the session.
func Connect(brokerURL, clientID string, timeout time.Duration, logger *zap.Logger) (mqtt.Client, error) {
	client := mqtt.NewClient(Options(brokerURL, clientID, logger))
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(DisconnectQuiesce)
		return nil, fmt.Errorf("mqtt connect to %s: timed out after %s", brokerURL, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", brokerURL, err)
	}
	return client, nil
}

package util

import (
	"github.com/berfenger/brager2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		BragerConnect: config.BragerConnectConfig{
			Host:          "wss://localhost",
			Username:      "test",
			Password:      "test",
			Language:      "en",
			TimeoutMillis: 2000,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "brager2mqtt",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 5000,
		},
		Port: 8080,
	}
}

package main

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sweeney/okay-to-wake/internal/gpio"
	"github.com/sweeney/okay-to-wake/internal/logging"
	"github.com/sweeney/okay-to-wake/internal/mqtt"
	"github.com/sweeney/okay-to-wake/internal/store"
)

// envKeyReplacer maps nested keys to env names: mqtt.broker is OKAY_TO_WAKE_MQTT_BROKER.
var envKeyReplacer = strings.NewReplacer(".", "_")

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log.format", logging.FormatConsole)
	v.SetDefault("tick", time.Second)
	v.SetDefault("heartbeat", 15*time.Minute)
	v.SetDefault("clock.timezone", "Local")
	v.SetDefault("storage.path", "/var/lib/okay-to-wake/eeprom.bin")
	v.SetDefault("storage.offset", 0)
	v.SetDefault("storage.redis.addr", "")
	v.SetDefault("storage.redis.key", store.DefaultRedisKey)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "okay-to-wake")
	v.SetDefault("mqtt.topic", mqtt.DefaultPrefix)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("gpio.chip", gpio.DefaultChip)
	v.SetDefault("gpio.red", gpio.PinRed)
	v.SetDefault("gpio.green", gpio.PinGreen)
	v.SetDefault("gpio.blue", gpio.PinBlue)
	v.SetDefault("fetch.url", "")
	v.SetDefault("fetch.kind", "")
	v.SetDefault("fetch.interval", time.Hour)
	v.SetDefault("fetch.timeout", 10*time.Second)
	v.SetDefault("watch.path", "")
}

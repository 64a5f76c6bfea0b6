package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIBaseURL string
	WSBaseURL  string

	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration
	PaymentWindow     time.Duration
	RequestTimeout    time.Duration
}

func Load() Config {
	heartbeat, _ := strconv.Atoi(get("CHAT_HEARTBEAT_SEC", "30"))
	reconnect, _ := strconv.Atoi(get("CHAT_RECONNECT_SEC", "5"))
	payWindow, _ := strconv.Atoi(get("PAYMENT_WINDOW_MIN", "10"))
	reqTimeout, _ := strconv.Atoi(get("REQUEST_TIMEOUT_SEC", "15"))
	return Config{
		APIBaseURL:        must("API_BASE_URL"),
		WSBaseURL:         must("WS_BASE_URL"),
		HeartbeatInterval: time.Duration(heartbeat) * time.Second,
		ReconnectDelay:    time.Duration(reconnect) * time.Second,
		PaymentWindow:     time.Duration(payWindow) * time.Minute,
		RequestTimeout:    time.Duration(reqTimeout) * time.Second,
	}
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

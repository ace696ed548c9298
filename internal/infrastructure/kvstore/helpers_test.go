package kvstore

import (
	"strconv"
	"time"

	"github.com/event-snap/internal/config"
)

func itoa(i int) string { return strconv.Itoa(i) }

func kvConfig(backend string) config.KVConfig {
	return config.KVConfig{Backend: backend, DialTimeout: time.Second, OpTimeout: time.Second}
}

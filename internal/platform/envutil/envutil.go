package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
)

func lookup(name string, log *logger.Logger) (string, *logger.Logger, bool) {
	if log != nil {
		log = log.With("env_var", name)
	}
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", log, false
	}
	return v, log, true
}

func String(name, def string, log *logger.Logger) string {
	v, log, ok := lookup(name, log)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", def)
		}
		return def
	}
	if log != nil {
		log.Debug("Environment variable found, using environment", "environment", v)
	}
	return v
}

func Int(name string, def int, log *logger.Logger) int {
	v, log, ok := lookup(name, log)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as int, using default", "providedVal", v, "defaultVal", def, "error", err)
		}
		return def
	}
	return i
}

func Bool(name string, def bool, log *logger.Logger) bool {
	v, _, ok := lookup(name, log)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	if log != nil {
		log.Debug("Environment variable could not be parsed as bool, using default", "env_var", name, "providedVal", v, "defaultVal", def)
	}
	return def
}

// Duration accepts Go duration strings ("90s", "5m") or a bare integer number of seconds.
func Duration(name string, def time.Duration, log *logger.Logger) time.Duration {
	v, log, ok := lookup(name, log)
	if !ok {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		if log != nil {
			log.Debug("Environment variable could not be parsed as duration, using default", "providedVal", v, "defaultVal", def.String(), "error", err)
		}
		return def
	}
	return d
}

// List splits a comma separated value, dropping blanks.
func List(name string, def []string, log *logger.Logger) []string {
	v, _, ok := lookup(name, log)
	if !ok {
		return def
	}
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func Float(name string, def float64, log *logger.Logger) float64 {
	v, log, ok := lookup(name, log)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as float, using default", "providedVal", v, "defaultVal", def, "error", err)
		}
		return def
	}
	return f
}

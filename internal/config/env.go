package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func stringWithDefault(key, def string) string {
	variable, isOk := os.LookupEnv(key)
	if !isOk || variable == "" {
		return def
	}
	return variable
}

func intWithDefault(key string, def int) (int, error) {
	variable, isOk := os.LookupEnv(key)
	if !isOk || variable == "" {
		return def, nil
	}
	number, err := strconv.Atoi(variable)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %w", key, err)
	}
	return number, nil
}

func boolWithDefault(key string, def bool) bool {
	variable, isOk := os.LookupEnv(key)
	if !isOk || variable == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(variable)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

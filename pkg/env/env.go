// Package env reads process environment variables with fallbacks.
package env

import "os"

// Get returns the environment variable named key, or fallback when the
// variable is unset or empty.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}

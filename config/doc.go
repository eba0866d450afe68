// Package config loads and validates the host configuration from JSON, with
// defaults suitable for local development. SafeConfig wraps a Config for
// concurrent readers, and the Get* helpers give panic-free access to the
// dynamic property maps islands are configured with.
package config

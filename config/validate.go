package config

import (
	"errors"
	"fmt"
	"strings"

	"tastefun/crypto"
	"tastefun/storage"
)

// Journal drivers.
const (
	JournalSQLite   = "sqlite"
	JournalPostgres = "postgres"
	JournalNone     = "none"
)

// MinHMACSecretLen is the shortest accepted API signing secret.
const MinHMACSecretLen = 32

var ErrInvalidConfig = errors.New("config: invalid configuration")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the configuration for values the node cannot start with.
func (c *Config) Validate() error {
	switch c.Backend {
	case storage.BackendBolt, storage.BackendLevelDB, storage.BackendMemory:
	default:
		return invalid("unknown backend %q", c.Backend)
	}
	if c.Backend != storage.BackendMemory && strings.TrimSpace(c.DataDir) == "" {
		return invalid("DataDir required for %s backend", c.Backend)
	}
	if err := c.Protocol.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Identities(); err != nil {
		return err
	}
	if len(c.Auth.HMACSecret) < MinHMACSecretLen {
		return invalid("Auth.HMACSecret must be at least %d bytes", MinHMACSecretLen)
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return invalid("RateLimit requires positive RequestsPerSecond and Burst")
	}
	switch c.Journal.Driver {
	case JournalSQLite, JournalPostgres:
		if strings.TrimSpace(c.Journal.DSN) == "" {
			return invalid("Journal.DSN required for %s", c.Journal.Driver)
		}
	case JournalNone:
	default:
		return invalid("unknown journal driver %q", c.Journal.Driver)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return invalid("Telemetry.SampleRatio must be within [0, 1]")
	}
	return nil
}

// Identities decodes the operator addresses. Oracle, treasury and admin are
// required; the dust sink falls back to the treasury.
func (c *Config) Identities() (Identities, error) {
	var ids Identities
	required := []struct {
		name string
		raw  string
		dst  *[20]byte
	}{
		{"OracleAddress", c.OracleAddress, &ids.Oracle},
		{"TreasuryAddress", c.TreasuryAddress, &ids.Treasury},
		{"AdminAddress", c.AdminAddress, &ids.Admin},
	}
	for _, field := range required {
		if strings.TrimSpace(field.raw) == "" {
			return Identities{}, invalid("%s required", field.name)
		}
		addr, err := crypto.ParseAddress(strings.TrimSpace(field.raw))
		if err != nil {
			return Identities{}, invalid("%s: %v", field.name, err)
		}
		*field.dst = addr
	}
	ids.DustSink = ids.Treasury
	if raw := strings.TrimSpace(c.DustSinkAddress); raw != "" {
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			return Identities{}, invalid("DustSinkAddress: %v", err)
		}
		ids.DustSink = addr
	}
	return ids, nil
}

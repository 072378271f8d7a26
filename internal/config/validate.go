package config

import (
	"fmt"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535] (got %d)", c.Server.Port)
	}

	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("server.rate_limit_per_minute must not be negative (got %d)", c.Server.RateLimitPerMinute)
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("database.max_conns (%d) must be >= database.min_conns (%d)",
			c.Database.MaxConns, c.Database.MinConns)
	}

	if err := c.Transaction.validate(); err != nil {
		return fmt.Errorf("transaction: %w", err)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error (got %q)", c.Log.Level)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}

	return nil
}

func (t *TransactionConfig) validate() error {
	if t.MaxDescriptionLen <= 0 {
		return fmt.Errorf("max_description_len must be > 0 (got %d)", t.MaxDescriptionLen)
	}
	if t.MaxPurchaseItems <= 0 {
		return fmt.Errorf("max_purchase_items must be > 0 (got %d)", t.MaxPurchaseItems)
	}
	if t.MaxItemNameLen <= 0 {
		return fmt.Errorf("max_item_name_len must be > 0 (got %d)", t.MaxItemNameLen)
	}
	if t.GroupLogPageSize <= 0 {
		return fmt.Errorf("group_log_page_size must be > 0 (got %d)", t.GroupLogPageSize)
	}
	return nil
}

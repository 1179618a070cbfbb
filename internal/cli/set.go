package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/runnerr0/notifylog/internal/logging"
	"github.com/runnerr0/notifylog/internal/prefs"
)

// Execute implements the go-flags Commander interface for SetCommand.
func (c *SetCommand) Execute(args []string) error {
	cfg, err := resolveConfig(c.globals)
	if err != nil {
		return err
	}

	pm, err := openPrefs(cfg, logging.Nop())
	if err != nil {
		return err
	}

	return c.executeWithManager(pm, args)
}

// executeWithManager runs set against a provided manager (for testing).
// With no arguments the current preferences are printed; otherwise args
// must be a key and a value.
func (c *SetCommand) executeWithManager(pm *prefs.Manager, args []string) error {
	if len(args) == 0 {
		return c.printPrefs(pm.Get())
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: set <key> <value> (keys: logging, system-apps, auto-delete-days)")
	}

	key, value := args[0], args[1]
	switch key {
	case "logging", "logging-enabled":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value %q for %s: %w", value, key, err)
		}
		if err := pm.SetLoggingEnabled(v); err != nil {
			return fmt.Errorf("save preference: %w", err)
		}
	case "system-apps", "ignore-system-apps":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value %q for %s: %w", value, key, err)
		}
		// The key reads as "log system apps"; the stored flag is inverted.
		ignore := v
		if key == "system-apps" {
			ignore = !v
		}
		if err := pm.SetIgnoreSystemApps(ignore); err != nil {
			return fmt.Errorf("save preference: %w", err)
		}
	case "auto-delete-days":
		days, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value %q for %s: expected a number of days", value, key)
		}
		if err := pm.SetAutoDeleteDays(days); err != nil {
			return fmt.Errorf("save preference: %w", err)
		}
	default:
		return fmt.Errorf("unknown preference %q (keys: logging, system-apps, auto-delete-days)", key)
	}

	return c.printPrefs(pm.Get())
}

func (c *SetCommand) printPrefs(p prefs.Prefs) error {
	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"logging_enabled":    p.LoggingEnabled,
			"ignore_system_apps": p.IgnoreSystemApps,
			"auto_delete_days":   p.AutoDeleteDays,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("logging:           %s\n", onOff(p.LoggingEnabled))
	fmt.Printf("system-apps:       %s\n", onOff(!p.IgnoreSystemApps))
	if p.AutoDeleteDays > 0 {
		fmt.Printf("auto-delete-days:  %d\n", p.AutoDeleteDays)
	} else {
		fmt.Println("auto-delete-days:  disabled")
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

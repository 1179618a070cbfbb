package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/notifylog/internal/logging"
	"github.com/runnerr0/notifylog/internal/prefs"
)

func newTestPrefs(t *testing.T) *prefs.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	return prefs.NewManager(path, logging.Nop())
}

func TestSet_NoArgsPrintsCurrent(t *testing.T) {
	pm := newTestPrefs(t)

	c := &SetCommand{}
	out := captureOutput(t, func() {
		require.NoError(t, c.executeWithManager(pm, nil))
	})

	assert.Contains(t, out, "logging:           on")
	assert.Contains(t, out, "system-apps:       on")
	assert.Contains(t, out, "auto-delete-days:  30")
}

func TestSet_LoggingOff(t *testing.T) {
	pm := newTestPrefs(t)

	c := &SetCommand{}
	out := captureOutput(t, func() {
		require.NoError(t, c.executeWithManager(pm, []string{"logging", "off"}))
	})

	assert.Contains(t, out, "logging:           off")
	assert.False(t, pm.Get().LoggingEnabled)
}

func TestSet_SystemAppsOffSetsIgnore(t *testing.T) {
	pm := newTestPrefs(t)

	c := &SetCommand{}
	captureOutput(t, func() {
		require.NoError(t, c.executeWithManager(pm, []string{"system-apps", "off"}))
	})

	assert.True(t, pm.Get().IgnoreSystemApps)
}

func TestSet_AutoDeleteDays(t *testing.T) {
	pm := newTestPrefs(t)

	c := &SetCommand{}
	out := captureOutput(t, func() {
		require.NoError(t, c.executeWithManager(pm, []string{"auto-delete-days", "7"}))
	})

	assert.Contains(t, out, "auto-delete-days:  7")
	assert.Equal(t, 7, pm.Get().AutoDeleteDays)
}

func TestSet_UnknownKey(t *testing.T) {
	pm := newTestPrefs(t)

	c := &SetCommand{}
	err := c.executeWithManager(pm, []string{"volume", "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown preference")
}

func TestSet_InvalidBool(t *testing.T) {
	pm := newTestPrefs(t)

	c := &SetCommand{}
	err := c.executeWithManager(pm, []string{"logging", "maybe"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid value")
}

func TestSet_WrongArgCount(t *testing.T) {
	pm := newTestPrefs(t)

	c := &SetCommand{}
	err := c.executeWithManager(pm, []string{"logging"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: set")
}

package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "character.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFileBuildsWiredCharacter(t *testing.T) {
	path := writeDoc(t, `
name: brawler
resources:
  - id: energy
    upper_limit: 10
    current: 10
states:
  - id: focused
    current: 0
    upper_limit: 3
    type: 1
    length: 100
    op_accelerate_rules:
      - operation_id: strike
        ratio_per_stack: 0.25
        by_current_stack: true
        max_ratio: 0.9
operations:
  - id: strike
    base_time: 2
    requirements:
      - resource_id: energy
        consume: 2
    states_output:
      - focused
`)

	c, err := LoadFile(path)
	require.NoError(t, err)

	energy, ok := c.Resource("energy")
	require.True(t, ok)
	require.Equal(t, 10.0, energy.Current())

	log := c.BuildRotationGreedyOps(1, nil)
	require.Len(t, log, 1)
	require.Equal(t, "strike", log[0].OperationID)
	require.Equal(t, 8.0, energy.Current())

	focused, ok := c.States.Get("focused")
	require.True(t, ok)
	require.Equal(t, 1, focused.Current(), "states_output must have touched focused")
}

func TestLoadFileRejectsUnknownResourceReference(t *testing.T) {
	path := writeDoc(t, `
name: broken
resources: []
states: []
operations:
  - id: strike
    base_time: 1
    requirements:
      - resource_id: missing
        consume: 1
`)

	_, err := LoadFile(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown resource id: missing")
}

func TestLoadFileRejectsUnknownFields(t *testing.T) {
	path := writeDoc(t, `
name: typo
resources: []
states: []
operations: []
unknown_top_level: true
`)

	_, err := LoadFile(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "field unknown_top_level not found")
}

func TestLoadFileRejectsUnknownCompareMode(t *testing.T) {
	path := writeDoc(t, `
name: bad-mode
resources:
  - id: rage
    upper_limit: 100
    current: 0
states:
  - id: overheat
    current: 0
    upper_limit: 1
    type: 1
    length: 10
operations:
  - id: vent
    base_time: 0
    resource_state_rules:
      - resource_id: rage
        threshold: 50
        state_id: overheat
        mode: "~="
        once: true
`)

	_, err := LoadFile(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown comparison mode")
}

func TestLoadFileWiresChargeMechanic(t *testing.T) {
	path := writeDoc(t, `
name: charges-demo
resources: []
states: []
operations:
  - id: combo_strike
    base_time: 0
    charges:
      max_charges: 2
      charge_cd: 5
`)

	c, err := LoadFile(path)
	require.NoError(t, err)

	charge, ok := c.Resource("charge_combo_strike")
	require.True(t, ok)
	require.Equal(t, 2.0, charge.Current())

	log := c.BuildRotationGreedyOps(1, nil)
	require.Len(t, log, 1)
	require.Equal(t, 1.0, charge.Current())
}

func TestLoadFileWiresRegenAndTriggerRules(t *testing.T) {
	path := writeDoc(t, `
name: regen-demo
resources:
  - id: mana
    upper_limit: 100
    current: 0
states:
  - id: channeling
    current: 0
    upper_limit: 1
    type: 1
    length: 100
operations:
  - id: cast
    base_time: 0
    states_output:
      - channeling
regen_rules:
  - resource_id: mana
    rate_per_sec: 5
    requires:
      - state_id: channeling
        min_stack: 1
trigger_rules:
  - trigger_operation_id: cast
    target_state_id: channeling
    add_stacks: 1
`)

	c, err := LoadFile(path)
	require.NoError(t, err)

	log := c.BuildRotationGreedyOps(1, nil)
	require.Len(t, log, 1)

	channeling, ok := c.States.Get("channeling")
	require.True(t, ok)
	require.Equal(t, 1, channeling.Current())
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeCharacterDoc(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "character.yaml")
	content := `
name: brawler
resources:
  - id: energy
    upper_limit: 10
    current: 10
states: []
operations:
  - id: strike
    base_time: 1
    requirements:
      - resource_id: energy
        consume: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateCommandAcceptsAWellFormedDocument(t *testing.T) {
	path := writeCharacterDoc(t)

	buf := &bytes.Buffer{}
	cmd := newValidateCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "brawler")
}

func TestValidateCommandRejectsAMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: broken\nresources:\n  - id: x\n"), 0644))

	cmd := newValidateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	require.Equal(t, ExitCommandError, exitCodeFor(err))
}

func TestRunCommandExecutesAGreedyRotation(t *testing.T) {
	path := writeCharacterDoc(t)

	buf := &bytes.Buffer{}
	cmd := newRunCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--driver", "greedy", "--max-steps", "1"})

	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "strike")
	require.Contains(t, buf.String(), "1 operation(s) executed")
}

func TestRunCommandRejectsAnUnknownDriver(t *testing.T) {
	path := writeCharacterDoc(t)

	cmd := newRunCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "--driver", "bogus"})

	err := cmd.Execute()
	require.Error(t, err)
	require.Equal(t, ExitCommandError, exitCodeFor(err))
}

func TestRunCommandLogsToASQLiteFileWhenRequested(t *testing.T) {
	path := writeCharacterDoc(t)
	logPath := filepath.Join(t.TempDir(), "runs.db")

	buf := &bytes.Buffer{}
	cmd := newRunCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--driver", "greedy", "--max-steps", "1", "--log", logPath})

	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "logged to")
	require.FileExists(t, logPath)
}

func TestRunCommandFullAttachesResourceSnapshots(t *testing.T) {
	path := writeCharacterDoc(t)
	logPath := filepath.Join(t.TempDir(), "runs.db")

	buf := &bytes.Buffer{}
	cmd := newRunCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--driver", "greedy", "--max-steps", "1", "--full", "--log", logPath})

	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "resources=map[energy:8]")
	require.FileExists(t, logPath)
}

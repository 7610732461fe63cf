package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atypics3/About-My-Professor/internal/config"
)

// TestMain runs before all tests and loads .env if available
func TestMain(m *testing.M) {
	_ = godotenv.Load()
	os.Exit(m.Run())
}

// execute runs the root command in-process against a fresh store directory.
func execute(t *testing.T, storeDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvStoreDir, storeDir)
	t.Setenv(config.EnvDatabaseURL, "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", ""}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeStore(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestConsolidateCommand(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, "prof_link.json", `{
  "Lee, K.": "https://campusdirectory.ucsc.edu/cd_detail?uid=kl7",
  "Smith, J": "https://campusdirectory.ucsc.edu/cd_detail?uid=other",
  "Doe, A.": null
}`)
	writeStore(t, dir, "prof_uid.json", `{"Smith, J": "jsmith1"}`)

	output, err := execute(t, dir, "consolidate")
	require.NoError(t, err)
	assert.Contains(t, output, "Added")

	raw, err := os.ReadFile(filepath.Join(dir, "prof_uid.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Lee, K.": "kl7", "Smith, J": "jsmith1"}`, string(raw))
}

func TestPendingCommand(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, "prof_link.json", `{
  "Lee, K.": "https://campusdirectory.ucsc.edu/cd_detail?uid=kl7",
  "Doe, A.": null
}`)

	output, err := execute(t, dir, "pending")
	require.NoError(t, err)
	assert.Contains(t, output, "Doe, A.")
	assert.NotContains(t, output, "Lee, K.")
	assert.Contains(t, output, "1 pending")
}

func TestLookupCommand(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, "prof_link.json", `{"Lee, K.": "https://campusdirectory.ucsc.edu/cd_detail?uid=kl7"}`)
	writeStore(t, dir, "prof_uid.json", `{"Lee, K.": "kl7"}`)

	output, err := execute(t, dir, "lookup", "Lee,", "K.")
	require.NoError(t, err)
	assert.Contains(t, output, "kl7")
	assert.Contains(t, output, "valid")
}

func TestLookupCommand_RequiresName(t *testing.T) {
	_, err := execute(t, t.TempDir(), "lookup")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, "prof_uid.json", `{"Lee, K.": "kl7"}`)

	output, err := execute(t, dir, "validate")
	require.NoError(t, err)
	assert.Contains(t, output, "Validation passed")
	assert.Contains(t, output, "not found, skipped")
}

func TestValidateCommand_Failure(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, "prof_link.json", `{"Lee, K.": 42}`)

	output, err := execute(t, dir, "validate")
	require.Error(t, err)
	assert.Contains(t, output, "Validation failed")
}

package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runInitIn executes init with args inside dir and returns stdout. The
// user config lookup is pinned under dir so a developer's real config
// never leaks into assertions.
func runInitIn(t *testing.T, dir string, args ...string) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	var stdout bytes.Buffer
	cmd := newInitCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return stdout.String()
}

func TestInitCmd_CreatesProjectYAML(t *testing.T) {
	// Given: an uninitialized project
	tmpDir := t.TempDir()

	// When: running init without MCP registration
	output := runInitIn(t, tmpDir, "--skip-mcp")

	// Then: the configuration template is written
	assert.Contains(t, output, "Created .symdex.yaml")

	data, err := os.ReadFile(filepath.Join(tmpDir, ".symdex.yaml"))
	require.NoError(t, err, ".symdex.yaml should be created")

	content := string(data)
	assert.Contains(t, content, "version:", "Should contain version field")
	assert.Contains(t, content, "dump_dir", "Should document the dump directory")
	assert.Contains(t, content, "#", "Should contain commented examples")
}

func TestInitCmd_PreservesExistingYAML(t *testing.T) {
	// Given: a project with a customized configuration
	tmpDir := t.TempDir()
	existing := "version: 1\nsearch:\n  max_results: 50\n"
	yamlPath := filepath.Join(tmpDir, ".symdex.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(existing), 0o644))

	// When: running init again
	output := runInitIn(t, tmpDir, "--skip-mcp")

	// Then: the customization survives
	assert.Contains(t, output, "preserved")

	data, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, existing, string(data), "Existing .symdex.yaml should not be overwritten")
}

func TestInitCmd_ForceOverwritesYAML(t *testing.T) {
	// Given: a project with a customized configuration
	tmpDir := t.TempDir()
	yamlPath := filepath.Join(tmpDir, ".symdex.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("version: 1\n"), 0o644))

	// When: running init with --force
	output := runInitIn(t, tmpDir, "--skip-mcp", "--force")

	// Then: the template replaces the old file and the original is backed up
	data, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "symdex project configuration")

	assert.Contains(t, output, "Backed up")
	backups, err := filepath.Glob(yamlPath + ".bak.*")
	require.NoError(t, err)
	require.Len(t, backups, 1)
	old, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(old))
}

func TestInitCmd_RegistersMCPServer(t *testing.T) {
	// Given: an uninitialized project
	tmpDir := t.TempDir()

	// When: running init
	runInitIn(t, tmpDir)

	// Then: .mcp.json points an MCP client at 'symdex serve'
	data, err := os.ReadFile(filepath.Join(tmpDir, ".mcp.json"))
	require.NoError(t, err, ".mcp.json should be created")

	var mcpCfg MCPConfig
	require.NoError(t, json.Unmarshal(data, &mcpCfg))

	server, ok := mcpCfg.MCPServers["symdex"]
	require.True(t, ok, "symdex should be in mcpServers")
	assert.Equal(t, "stdio", server.Type)
	assert.Equal(t, []string{"serve"}, server.Args)
	assert.NotEmpty(t, server.Command)

	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedCwd, _ := filepath.EvalSymlinks(tmpDir)
	actualCwd, _ := filepath.EvalSymlinks(server.Cwd)
	assert.Equal(t, expectedCwd, actualCwd, "cwd should match project root")
}

func TestInitCmd_KeepsOtherMCPServers(t *testing.T) {
	// Given: a project whose .mcp.json already lists another server
	tmpDir := t.TempDir()
	existing := `{
  "mcpServers": {
    "other": {
      "command": "/usr/local/bin/other",
      "args": ["run"]
    }
  }
}`
	mcpPath := filepath.Join(tmpDir, ".mcp.json")
	require.NoError(t, os.WriteFile(mcpPath, []byte(existing), 0o644))

	// When: running init
	runInitIn(t, tmpDir)

	// Then: both servers are configured
	data, err := os.ReadFile(mcpPath)
	require.NoError(t, err)

	var mcpCfg MCPConfig
	require.NoError(t, json.Unmarshal(data, &mcpCfg))
	assert.Contains(t, mcpCfg.MCPServers, "other", "Should preserve existing servers")
	assert.Contains(t, mcpCfg.MCPServers, "symdex", "Should add symdex")
}

func TestInitCmd_SkipMCPLeavesNoConfig(t *testing.T) {
	// Given: an uninitialized project
	tmpDir := t.TempDir()

	// When: running init with --skip-mcp
	output := runInitIn(t, tmpDir, "--skip-mcp")

	// Then: no .mcp.json appears
	assert.Contains(t, output, "Skipping MCP registration")
	_, err := os.Stat(filepath.Join(tmpDir, ".mcp.json"))
	assert.True(t, os.IsNotExist(err), ".mcp.json should not be created with --skip-mcp")
}

func TestInitCmd_Idempotent(t *testing.T) {
	// Given: an initialized project
	tmpDir := t.TempDir()
	runInitIn(t, tmpDir)

	// When: running init again
	output := runInitIn(t, tmpDir)

	// Then: existing files are reported, not rewritten
	assert.Contains(t, output, "preserved")
	assert.Contains(t, output, "already configured")
}

func TestInitCmd_PrintsNextSteps(t *testing.T) {
	// Given: an uninitialized project
	tmpDir := t.TempDir()

	// When: running init
	output := runInitIn(t, tmpDir, "--skip-mcp")

	// Then: the user is told where dumps go and what to run
	assert.Contains(t, output, "Next steps")
	assert.Contains(t, output, "symbols", "Should name the dump directory")
	assert.Contains(t, output, "symdex index", "Should point at the index command")
}

func TestInitCmd_UserConfig(t *testing.T) {
	// Given: a home without a user config
	tmpDir := t.TempDir()

	// When: running init --user
	output := runInitIn(t, tmpDir, "--user")

	// Then: the machine-level template lands under the config dir
	assert.Contains(t, output, "Created")

	path := filepath.Join(tmpDir, "xdg", "symdex", "config.yaml")
	data, err := os.ReadFile(path)
	require.NoError(t, err, "user config should be created")
	assert.Contains(t, string(data), "symdex user configuration")
}

func TestInitCmd_UserConfigNotOverwritten(t *testing.T) {
	// Given: an existing user config
	tmpDir := t.TempDir()
	runInitIn(t, tmpDir, "--user")

	// When: running init --user again without --force
	output := runInitIn(t, tmpDir, "--user")

	// Then: the existing file wins
	assert.Contains(t, output, "already exists")
	assert.Contains(t, output, "--force")
}

func TestFindSymdexBinary(t *testing.T) {
	// The test binary is not symdex, but resolution should not fail or panic.
	path, err := findSymdexBinary()

	if err == nil {
		assert.NotEmpty(t, path)
	}
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codenav/symdex/configs"
	"github.com/codenav/symdex/internal/config"
	"github.com/codenav/symdex/internal/output"
	"github.com/codenav/symdex/pkg/version"
)

// MCPServerConfig is one server entry in .mcp.json.
type MCPServerConfig struct {
	Type    string            `json:"type,omitempty"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// MCPConfig is the root .mcp.json structure.
type MCPConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

func newInitCmd() *cobra.Command {
	var (
		force   bool
		skipMCP bool
		user    bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize symdex for a project",
		Long: `Initialize symdex for the current project.

This command:
1. Generates a .symdex.yaml configuration template in the project root
2. Registers the MCP server in .mcp.json (unless --skip-mcp)

Defaults work out of the box; the template documents what can be
overridden. With --user it instead writes the machine-level template
at ~/.config/symdex/config.yaml for settings shared by all projects.`,
		Example: `  # Initialize in the current project
  symdex init

  # Overwrite an existing configuration
  symdex init --force

  # Configuration file only, no MCP registration
  symdex init --skip-mcp

  # Machine-level config instead of project config
  symdex init --user`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if user {
				return runInitUser(cmd, force)
			}
			return runInit(cmd, force, skipMCP)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&skipMCP, "skip-mcp", false, "Skip MCP registration in .mcp.json")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user config template instead")

	return cmd
}

func runInit(cmd *cobra.Command, force, skipMCP bool) error {
	out := output.New(cmd.OutOrStdout())

	out.Statusf("🚀", "symdex %s - Initializing...", version.Version)
	out.Newline()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		root = cwd
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	out.Statusf("📁", "Project: %s", absRoot)
	out.Newline()

	if err := generateProjectYAML(out, absRoot, force); err != nil {
		return err
	}

	mcpConfigured := false
	if skipMCP {
		out.Status("⏭️ ", "Skipping MCP registration (--skip-mcp)")
	} else {
		mcpConfigured, err = registerMCPServer(out, absRoot, force)
		if err != nil {
			out.Warningf("MCP registration failed: %v", err)
			out.Status("💡", "You can add symdex to .mcp.json manually")
		}
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	out.Newline()
	out.Success("Initialization complete!")
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Statusf("", "  1. Point your extractor at %s", cfg.ResolveDumpDir(absRoot))
	out.Status("", "  2. Run 'symdex index' to build the index")
	if mcpConfigured {
		out.Status("", "  3. Restart your editor to activate the MCP server")
	}

	if !config.UserConfigExists() {
		out.Newline()
		out.Status("💡", "For machine-level settings (index location, logging):")
		out.Status("", "   Run 'symdex init --user' to create a user config")
	}

	return nil
}

// runInitUser writes the machine-level config template.
func runInitUser(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	path := config.GetUserConfigPath()
	if _, err := os.Stat(path); err == nil && !force {
		out.Warningf("User config already exists: %s", path)
		out.Status("💡", "Use --force to overwrite")
		return nil
	}

	if err := os.MkdirAll(config.GetUserConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if force {
		if backup, err := config.BackupConfig(path); err == nil && backup != "" {
			out.Statusf("💾", "Backed up existing config to %s", backup)
		}
	}

	if err := os.WriteFile(path, []byte(configs.UserConfigTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}

	out.Successf("Created %s", path)
	return nil
}

// generateProjectYAML creates a template .symdex.yaml. Existing files
// are preserved unless force is set, so user customizations survive a
// rerun.
func generateProjectYAML(out *output.Writer, projectRoot string, force bool) error {
	yamlPath := filepath.Join(projectRoot, ".symdex.yaml")

	if !force {
		if _, err := os.Stat(yamlPath); err == nil {
			out.Status("ℹ️ ", "Existing .symdex.yaml preserved")
			return nil
		}

		// Both extensions are valid, user preference.
		ymlPath := filepath.Join(projectRoot, ".symdex.yml")
		if _, err := os.Stat(ymlPath); err == nil {
			out.Status("ℹ️ ", "Existing .symdex.yml found, skipping template")
			return nil
		}
	}

	if force {
		if backup, err := config.BackupConfig(yamlPath); err == nil && backup != "" {
			out.Statusf("💾", "Backed up existing config to %s", filepath.Base(backup))
		}
	}

	if err := os.WriteFile(yamlPath, []byte(configs.ProjectConfigTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write .symdex.yaml: %w", err)
	}

	out.Statusf("📝", "Created .symdex.yaml (optional project configuration)")
	return nil
}

// registerMCPServer creates or updates .mcp.json in the project root
// so MCP clients pick up the server without manual wiring.
func registerMCPServer(out *output.Writer, projectRoot string, force bool) (bool, error) {
	mcpPath := filepath.Join(projectRoot, ".mcp.json")

	var existing MCPConfig
	if data, err := os.ReadFile(mcpPath); err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return false, fmt.Errorf("failed to parse existing .mcp.json: %w", err)
		}

		if _, ok := existing.MCPServers["symdex"]; ok && !force {
			out.Status("ℹ️ ", "symdex already configured in .mcp.json")
			return true, nil
		}
	}

	if existing.MCPServers == nil {
		existing.MCPServers = make(map[string]MCPServerConfig)
	}

	binPath, err := findSymdexBinary()
	if err != nil {
		return false, fmt.Errorf("failed to find symdex binary: %w", err)
	}

	// Project scope needs cwd so the server resolves the right config.
	existing.MCPServers["symdex"] = MCPServerConfig{
		Type:    "stdio",
		Command: binPath,
		Args:    []string{"serve"},
		Cwd:     projectRoot,
	}

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(mcpPath, data, 0644); err != nil {
		return false, fmt.Errorf("failed to write .mcp.json: %w", err)
	}

	out.Statusf("📝", "Created %s", mcpPath)
	return true, nil
}

// findSymdexBinary locates the symdex binary for MCP registration.
func findSymdexBinary() (string, error) {
	execPath, err := os.Executable()
	if err == nil {
		// Resolve symlinks to get the real path.
		if realPath, err := filepath.EvalSymlinks(execPath); err == nil {
			return realPath, nil
		}
		return execPath, nil
	}

	path, err := exec.LookPath("symdex")
	if err != nil {
		return "", fmt.Errorf("symdex not found in PATH: %w", err)
	}

	return path, nil
}

// Package cli implements the requestkit command line: live-preview
// resolution, authoring-time validation, function catalog listing, and
// variable/profile management.
package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const (
	// Version is the current version of RequestKit
	Version = "1.0.0"
)

// Config holds the global configuration for the RequestKit CLI
type Config struct {
	ConfigDir string
	Debug     bool
}

// GlobalConfig is the shared configuration instance
var GlobalConfig = &Config{}

// NewRootCommand creates the root cobra command for RequestKit
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requestkit",
		Short: "RequestKit - header rule and variable resolution toolkit",
		Long: `RequestKit manages environment profiles of header-rewrite rules whose values
are templates over scoped variables (${API_TOKEN}, ${uuid()}, ${timestamp()}).
This CLI resolves templates for preview, validates variable definitions before
save, and manages the stored variables and profiles.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			if GlobalConfig.Debug {
				log.SetOutput(os.Stderr)
				log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
			} else {
				log.SetOutput(io.Discard)
			}

			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&GlobalConfig.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&GlobalConfig.ConfigDir, "config-dir", "", "Configuration directory (default: ~/.requestkit)")

	cmd.AddCommand(NewResolveCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewFunctionsCommand())
	cmd.AddCommand(NewVarsCommand())
	cmd.AddCommand(NewProfileCommand())

	return cmd
}

// initConfig initializes the RequestKit configuration directory
func initConfig() error {
	// Environment variable always takes priority (for testing)
	if envDir := os.Getenv("REQUESTKIT_CONFIG_DIR"); envDir != "" {
		GlobalConfig.ConfigDir = envDir
	} else if GlobalConfig.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		GlobalConfig.ConfigDir = filepath.Join(homeDir, ".requestkit")
	}

	if err := os.MkdirAll(GlobalConfig.ConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(GlobalConfig.ConfigDir, "profiles"), 0755); err != nil {
		return fmt.Errorf("failed to create profiles directory: %w", err)
	}

	return nil
}

// GetConfigDir returns the configuration directory path.
// Priority order: 1) REQUESTKIT_CONFIG_DIR env var (for testing),
// 2) GlobalConfig.ConfigDir, 3) ~/.requestkit
func GetConfigDir() string {
	if envDir := os.Getenv("REQUESTKIT_CONFIG_DIR"); envDir != "" {
		return envDir
	}
	if GlobalConfig.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ".requestkit"
		}
		return filepath.Join(homeDir, ".requestkit")
	}
	return GlobalConfig.ConfigDir
}

// GetDatabasePath returns the variable database path.
func GetDatabasePath() string {
	return filepath.Join(GetConfigDir(), "requestkit.db")
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

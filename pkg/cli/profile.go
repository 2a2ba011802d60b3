package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/navbytes/requestkit/pkg/profile"
	"github.com/navbytes/requestkit/pkg/storage"
)

// NewProfileCommand creates the profile management command
func NewProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage environment profiles",
		Long: `Manage environment profiles: named bundles of header rules and
profile-scoped variables, stored as YAML files under the config directory.`,
	}

	cmd.AddCommand(newProfileListCommand())
	cmd.AddCommand(newProfileImportCommand())
	cmd.AddCommand(newProfileExportCommand())
	cmd.AddCommand(newProfileDeleteCommand())

	return cmd
}

func openProfileRepository() (*storage.FilesystemProfileRepository, error) {
	return storage.NewFilesystemProfileRepositoryWithPath(GetConfigDir())
}

func newProfileListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openProfileRepository()
			if err != nil {
				return err
			}
			names, err := repo.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No profiles stored")
				return nil
			}
			for _, name := range names {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newProfileImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a profile from a YAML or JSON file",
		Long: `Import a profile. YAML files use the native exchange format; .json files
are treated as browser-extension exports and validated against the import
schema first.

Examples:
  requestkit profile import staging.yaml
  requestkit profile import requestkit-export.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			var p *profile.Profile
			if strings.HasSuffix(path, ".json") {
				p, err = profile.ImportJSON(data)
			} else {
				p, err = profile.Parse(data)
			}
			if err != nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "✗ Import failed")
				return err
			}

			repo, err := openProfileRepository()
			if err != nil {
				return err
			}
			if err := repo.Save(p); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported profile %q (%d rule(s), %d variable(s))\n",
				p.Name, len(p.Rules), len(p.Variables))
			return nil
		},
	}

	return cmd
}

func newProfileExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Export a stored profile as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openProfileRepository()
			if err != nil {
				return err
			}
			p, err := repo.Load(args[0])
			if err != nil {
				return err
			}

			data, err := profile.Export(p)
			if err != nil {
				return err
			}

			if output == "" {
				_, _ = cmd.OutOrStdout().Write(data)
				return nil
			}
			if err := os.WriteFile(output, data, 0600); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported profile %q to %s\n", p.Name, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}

func newProfileDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openProfileRepository()
			if err != nil {
				return err
			}
			if err := repo.Delete(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted profile %q\n", args[0])
			return nil
		},
	}
}

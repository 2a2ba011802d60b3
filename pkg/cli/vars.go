package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/navbytes/requestkit/pkg/domain/types"
	"github.com/navbytes/requestkit/pkg/storage"
	"github.com/navbytes/requestkit/pkg/validation"
	"github.com/navbytes/requestkit/pkg/variable"
)

// NewVarsCommand creates the variable management command
func NewVarsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vars",
		Short: "Manage stored variables",
		Long: `Manage variables in the local database. Secret variable values are kept in
the system keyring (Keychain on macOS, Credential Manager on Windows, Secret
Service on Linux); the database stores only a placeholder for them.`,
	}

	cmd.AddCommand(newVarsSetCommand())
	cmd.AddCommand(newVarsListCommand())
	cmd.AddCommand(newVarsDeleteCommand())

	return cmd
}

// openRepository opens the variable database at the configured location.
func openRepository() (*storage.SQLiteVariableRepository, error) {
	return storage.NewSQLiteVariableRepositoryWithPath(GetDatabasePath())
}

// secretPlaceholder is stored in the database in place of a secret value.
const secretPlaceholder = "<secret>"

func newVarsSetCommand() *cobra.Command {
	var (
		scopeName string
		ownerID   string
		secret    bool
	)

	cmd := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Create or update a variable",
		Long: `Create or update a variable. Profile- and rule-scoped variables require
--owner with the owning profile/rule ID.

Examples:
  requestkit vars set API_TOKEN abc123
  requestkit vars set API_TOKEN prod-token --secret
  requestkit vars set base_url https://staging.example.com --scope profile --owner <profile-id>`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, value := args[0], args[1]

			if err := validation.ValidateName(name); err != nil {
				return err
			}
			if report := validation.ValidateValue(value); !report.Valid {
				return fmt.Errorf("invalid value: %s", report.Errors[0])
			}

			scope, err := variable.ParseScope(scopeName)
			if err != nil {
				return err
			}

			repo, err := openRepository()
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			// Update in place when the name already exists in this scope.
			existing, err := repo.ListByScope(scope, ownerID)
			if err != nil {
				return err
			}
			var v *variable.Variable
			for _, candidate := range existing {
				if candidate.Name == name {
					v = candidate
					break
				}
			}
			if v == nil {
				v = variable.New(name, value, scope)
				switch scope {
				case variable.ScopeProfile:
					v.ProfileID = types.ProfileID(ownerID)
				case variable.ScopeRule:
					v.RuleID = types.RuleID(ownerID)
				}
			} else {
				v.Value = value
				v.Touch()
			}
			v.IsSecret = secret

			if secret {
				secrets := storage.NewKeyringSecretStore()
				if err := secrets.Set(name, value); err != nil {
					return err
				}
				v.Value = secretPlaceholder
			}

			if err := repo.Save(v); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s variable %q\n", scope, name)
			return nil
		},
	}

	cmd.Flags().StringVar(&scopeName, "scope", "global", "Variable scope (system, global, profile, rule)")
	cmd.Flags().StringVar(&ownerID, "owner", "", "Owning profile/rule ID for profile- and rule-scoped variables")
	cmd.Flags().BoolVar(&secret, "secret", false, "Store the value in the system keyring")

	return cmd
}

func newVarsListCommand() *cobra.Command {
	var (
		scopeName  string
		ownerID    string
		showSecret bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository()
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			scopes := []variable.Scope{variable.ScopeSystem, variable.ScopeGlobal, variable.ScopeProfile, variable.ScopeRule}
			if scopeName != "" {
				scope, err := variable.ParseScope(scopeName)
				if err != nil {
					return err
				}
				scopes = []variable.Scope{scope}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "SCOPE\tNAME\tVALUE\tENABLED")
			for _, scope := range scopes {
				vars, err := repo.ListByScope(scope, ownerID)
				if err != nil {
					return err
				}
				for _, v := range vars {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", v.Scope, v.Name, displayValue(v, showSecret), v.Enabled)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&scopeName, "scope", "", "Only this scope (system, global, profile, rule)")
	cmd.Flags().StringVar(&ownerID, "owner", "", "Owning profile/rule ID filter")
	cmd.Flags().BoolVar(&showSecret, "show-secrets", false, "Print secret values instead of redacting them")

	return cmd
}

// displayValue redacts secret values unless explicitly requested.
func displayValue(v *variable.Variable, showSecret bool) string {
	if !v.IsSecret {
		return v.Value
	}
	if !showSecret {
		return "••••••"
	}
	value, err := storage.NewKeyringSecretStore().Get(v.Name)
	if err != nil {
		return secretPlaceholder
	}
	return value
}

func newVarsDeleteCommand() *cobra.Command {
	var (
		scopeName string
		ownerID   string
	)

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			scope, err := variable.ParseScope(scopeName)
			if err != nil {
				return err
			}

			repo, err := openRepository()
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			vars, err := repo.ListByScope(scope, ownerID)
			if err != nil {
				return err
			}
			for _, v := range vars {
				if v.Name != name {
					continue
				}
				if v.IsSecret {
					// Best-effort; the database row is the source of truth.
					_ = storage.NewKeyringSecretStore().Delete(name)
				}
				if err := repo.Delete(v.ID); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s variable %q\n", scope, name)
				return nil
			}
			return fmt.Errorf("no %s variable named %q", scope, name)
		},
	}

	cmd.Flags().StringVar(&scopeName, "scope", "global", "Variable scope (system, global, profile, rule)")
	cmd.Flags().StringVar(&ownerID, "owner", "", "Owning profile/rule ID for profile- and rule-scoped variables")

	return cmd
}

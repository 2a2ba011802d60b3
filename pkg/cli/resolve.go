package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/navbytes/requestkit/pkg/resolver"
	"github.com/navbytes/requestkit/pkg/storage"
	"github.com/navbytes/requestkit/pkg/variable"
)

// NewResolveCommand creates the resolve command (live preview)
func NewResolveCommand() *cobra.Command {
	var (
		vars        []string
		profileName string
		rawURL      string
		method      string
		requestJSON string
		useStore    bool
		showVars    bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <template>",
		Short: "Resolve a template against a variable context",
		Long: `Resolve every ${...} expression in a template and print the result.

The context is assembled from --var flags (global scope), an optional stored
profile, and optionally the variable database. Request metadata for built-in
functions like domain() comes from --url/--method or a request JSON file.

Examples:
  requestkit resolve 'Bearer ${API_TOKEN}' --var API_TOKEN=abc123
  requestkit resolve '${uuid()}-${timestamp()}'
  requestkit resolve '${domain()}/${path()}' --url https://api.example.com/v1/users
  requestkit resolve 'X-Trace: ${trace_id}' --profile staging --store`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := variable.NewResolutionContext()

			if useStore {
				repo, err := storage.NewSQLiteVariableRepositoryWithPath(GetDatabasePath())
				if err != nil {
					return err
				}
				defer func() { _ = repo.Close() }()

				if ctx.SystemVariables, err = repo.ListByScope(variable.ScopeSystem, ""); err != nil {
					return err
				}
				if ctx.GlobalVariables, err = repo.ListByScope(variable.ScopeGlobal, ""); err != nil {
					return err
				}
			}

			if profileName != "" {
				repo, err := storage.NewFilesystemProfileRepositoryWithPath(GetConfigDir())
				if err != nil {
					return err
				}
				p, err := repo.Load(profileName)
				if err != nil {
					return err
				}
				ctx.ProfileVariables = append(ctx.ProfileVariables, p.Variables...)
			}

			for _, pair := range vars {
				name, value, found := strings.Cut(pair, "=")
				if !found {
					return fmt.Errorf("invalid --var %q (expected NAME=VALUE)", pair)
				}
				ctx.GlobalVariables = append(ctx.GlobalVariables, variable.New(name, value, variable.ScopeGlobal))
			}

			req, err := buildRequestContext(rawURL, method, requestJSON)
			if err != nil {
				return err
			}
			ctx.Request = req

			engine := resolver.NewEngine()
			result := engine.Resolve(args[0], ctx)

			out := cmd.OutOrStdout()
			if !result.Success {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "✗ Resolution failed")
				for _, msg := range result.Errors {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", msg)
				}
				if len(result.UnresolvedVariables) > 0 {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  unresolved: %s\n",
						strings.Join(result.UnresolvedVariables, ", "))
				}
				return fmt.Errorf("template did not resolve")
			}

			_, _ = fmt.Fprintln(out, result.Value)
			if showVars {
				_, _ = fmt.Fprintf(out, "resolved: %s\n", strings.Join(result.ResolvedVariables, ", "))
				_, _ = fmt.Fprintf(out, "time: %s\n", result.ResolutionTime)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Context variable as NAME=VALUE (repeatable, global scope)")
	cmd.Flags().StringVar(&profileName, "profile", "", "Stored profile supplying profile-scoped variables")
	cmd.Flags().StringVar(&rawURL, "url", "", "Request URL for built-in accessor functions")
	cmd.Flags().StringVar(&method, "method", "GET", "Request method for built-in accessor functions")
	cmd.Flags().StringVar(&requestJSON, "request-json", "", "JSON file describing the request (url, method, headers)")
	cmd.Flags().BoolVar(&useStore, "store", false, "Include system/global variables from the variable database")
	cmd.Flags().BoolVar(&showVars, "show-vars", false, "Print resolved variable names and timing")

	return cmd
}

// buildRequestContext assembles request metadata from flags. A request JSON
// file takes precedence; its url/method/headers fields are read with gjson
// so extra fields are tolerated.
func buildRequestContext(rawURL, method, requestJSON string) (*variable.RequestContext, error) {
	if requestJSON != "" {
		data, err := os.ReadFile(requestJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to read request file: %w", err)
		}
		if !gjson.ValidBytes(data) {
			return nil, fmt.Errorf("request file %s is not valid JSON", requestJSON)
		}

		doc := gjson.ParseBytes(data)
		jsonURL := doc.Get("url").String()
		if jsonURL == "" {
			return nil, fmt.Errorf("request file %s has no url field", requestJSON)
		}
		jsonMethod := doc.Get("method").String()
		if jsonMethod == "" {
			jsonMethod = method
		}

		req, err := variable.NewRequestContext(jsonURL, jsonMethod)
		if err != nil {
			return nil, fmt.Errorf("invalid url in request file: %w", err)
		}
		doc.Get("headers").ForEach(func(key, value gjson.Result) bool {
			req.Headers[key.String()] = value.String()
			return true
		})
		return req, nil
	}

	if rawURL == "" {
		return nil, nil
	}
	req, err := variable.NewRequestContext(rawURL, method)
	if err != nil {
		return nil, fmt.Errorf("invalid --url: %w", err)
	}
	return req, nil
}

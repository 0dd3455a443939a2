package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yourorg/confluencectl/internal/config"
)

type loginOptions struct {
	token    string
	domain   string
	basePath string
	space    string
	parent   string
}

func newAuthLoginCmd(globals *globalOptions) *cobra.Command {
	opts := &loginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a Confluence personal access token and profile defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuthLogin(cmd, globals, opts)
		},
	}

	cmd.Flags().StringVar(&opts.token, "token", "", "Personal access token to store (prompted if omitted)")
	cmd.Flags().StringVar(&opts.domain, "domain", "", "Confluence host, e.g. wiki.example.com")
	cmd.Flags().StringVar(&opts.basePath, "base-path", "", "Context path of the Confluence site (default /)")
	cmd.Flags().StringVar(&opts.space, "space", "", "Default space key")
	cmd.Flags().StringVar(&opts.parent, "parent", "", "Default parent page ID")

	return cmd
}

func runAuthLogin(cmd *cobra.Command, globals *globalOptions, opts *loginOptions) error {
	token := strings.TrimSpace(opts.token)
	if token == "" {
		read, err := promptForToken(cmd)
		if err != nil {
			return err
		}
		token = read
	}
	if token == "" {
		return errors.New("token cannot be empty")
	}

	if err := config.SaveToken(globals.profile, token); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	if err := config.SaveProfile(globals.profile, config.Profile{
		Domain:       opts.domain,
		BasePath:     opts.basePath,
		SpaceKey:     opts.space,
		ParentPageID: opts.parent,
	}); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Saved credentials for profile %q\n", globals.profile); err != nil {
		return fmt.Errorf("write confirmation: %w", err)
	}
	return nil
}

func promptForToken(cmd *cobra.Command) (string, error) {
	reader := cmd.InOrStdin()

	if f, ok := reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if _, err := fmt.Fprint(cmd.OutOrStdout(), "Confluence token: "); err != nil {
			return "", fmt.Errorf("prompt token: %w", err)
		}
		data, err := term.ReadPassword(int(f.Fd()))
		if _, ferr := fmt.Fprintln(cmd.OutOrStdout()); ferr != nil {
			return "", fmt.Errorf("prompt token: %w", ferr)
		}
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourorg/confluencectl/internal/config"
	"github.com/yourorg/confluencectl/internal/confluence"
)

var clientFactory = defaultClientFactory

func defaultClientFactory(auth config.Auth) (*confluence.Client, error) {
	return confluence.NewClient(confluence.ClientConfig{
		Token:   auth.Token,
		SiteURL: confluence.SiteURL(auth.Domain, auth.BasePath),
	})
}

// buildClient resolves credentials for the active profile. Explicit token
// and domain arguments win, and a non-empty basePath overrides the profile's.
func buildClient(globals *globalOptions, token, domain, basePath string) (*confluence.Client, error) {
	auth, err := config.ResolveAuth(globals.profile, token, domain)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials: %w", err)
	}
	if basePath != "" {
		auth.BasePath = basePath
	}
	client, err := clientFactory(auth)
	if err != nil {
		return nil, fmt.Errorf("build client: %w", err)
	}
	return client, nil
}

// pageArgs are the positionals shared by upload and workflow:
// <path> <title> <parent-page-id> <space-key> [token] [domain].
type pageArgs struct {
	path     string
	title    string
	parentID string
	spaceKey string
	token    string
	domain   string
}

const pageArgsUsage = "<path> <title> <parent-page-id> <space-key> [token] [domain]"

var pageArgsValidator = cobra.RangeArgs(4, 6) //nolint:mnd // four required, two optional positionals

func parsePageArgs(args []string) pageArgs {
	pa := pageArgs{
		path:     args[0],
		title:    args[1],
		parentID: strings.TrimSpace(args[2]),
		spaceKey: args[3],
	}
	if len(args) > 4 {
		pa.token = strings.TrimSpace(args[4])
	}
	if len(args) > 5 {
		pa.domain = strings.TrimSpace(args[5])
	}
	return pa
}

// profileDefault is the positional placeholder for "use the profile value".
const profileDefault = "-"

// fillPageDefaults replaces "-" parent or space positionals with the
// profile's stored defaults.
func fillPageDefaults(globals *globalOptions, pa *pageArgs) error {
	if pa.parentID != profileDefault && pa.spaceKey != profileDefault {
		return nil
	}
	profile, err := config.LoadProfile(globals.profile)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if pa.parentID == profileDefault {
		if profile.ParentPageID == "" {
			return fmt.Errorf("no default parent page stored for profile %q", globals.profile)
		}
		pa.parentID = profile.ParentPageID
	}
	if pa.spaceKey == profileDefault {
		if profile.SpaceKey == "" {
			return fmt.Errorf("no default space key stored for profile %q", globals.profile)
		}
		pa.spaceKey = profile.SpaceKey
	}
	return nil
}

package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "odg-admin",
	Short: "Operator CLI for the odg gateway",
	Long: `odg-admin performs administrative tasks against a running gateway:
inspecting and resetting per-user quotas, reading cache occupancy, and
triggering retention sweeps.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "gateway base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token for the admin surface")

	quotaCmd := &cobra.Command{
		Use:   "quota",
		Short: "Inspect and reset per-user quotas",
	}

	usageCmd := &cobra.Command{
		Use:   "usage <user-id>",
		Short: "Show a user's current window consumption",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, _ := cmd.Flags().GetString("tier")
			path := fmt.Sprintf("/admin/v1/users/%s/usage", url.PathEscape(args[0]))
			if tier != "" {
				path += "?tier=" + url.QueryEscape(tier)
			}
			return call("GET", path)
		},
	}
	usageCmd.Flags().String("tier", "", "tier level to report against (tier1, tier2, tier3)")

	resetCmd := &cobra.Command{
		Use:   "reset <user-id>",
		Short: "Purge all of a user's admission records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("POST", fmt.Sprintf("/admin/v1/users/%s/reset", url.PathEscape(args[0])))
		},
	}

	quotaCmd.AddCommand(usageCmd, resetCmd)

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the resource cache",
	}
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("GET", "/admin/v1/cache/stats")
		},
	}
	cacheCmd.AddCommand(statsCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Purge admission records older than the retention horizon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("POST", "/admin/v1/sweep")
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check gateway health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("GET", "/health")
		},
	}

	rootCmd.AddCommand(quotaCmd, cacheCmd, sweepCmd, healthCmd)
}

// Command gofr-doc runs the document assembly service and its maintenance
// commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gofr-hq/gofr-doc/internal/components"
	"github.com/gofr-hq/gofr-doc/internal/config"
	"github.com/gofr-hq/gofr-doc/internal/housekeeper"
	"github.com/gofr-hq/gofr-doc/internal/logging"
	"github.com/gofr-hq/gofr-doc/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "gofr-doc",
		Short: "Multi-tenant document assembly service",
		Long: `gofr-doc assembles HTML, PDF and Markdown documents from curated
templates, fragments and styles. It speaks plain REST and MCP, scopes every
resource to the caller's JWT group, and keeps its on-disk artifact store
bounded by a background housekeeper.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       components.Version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (environment wins)")

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newPruneCmd(&configPath))
	rootCmd.AddCommand(newTokenCmd(&configPath))
	return rootCmd
}

func loadComponents(configPath string) (*components.ServerComponents, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return components.Bootstrap(cfg)
}

func newServeCmd(configPath *string) *cobra.Command {
	var stdioMCP bool
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and MCP server",
		Long: `Start the service: REST API plus the MCP SSE transport on one
listener, with the storage housekeeper running in the background.

With --stdio the MCP server speaks on stdin/stdout instead, for use as a
subprocess of an MCP client. The HTTP listener still runs so proxy downloads
keep working.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				logging.SetLevel(logging.DEBUG)
			}
			c, err := loadComponents(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			group, ctx := errgroup.WithContext(ctx)
			group.Go(func() error {
				return c.Server.RunWithMCP(ctx, c.Addr(), c.MCP, c.BaseURL())
			})
			group.Go(func() error {
				err := c.Keeper.Run(ctx)
				if err == context.Canceled {
					return nil
				}
				return err
			})
			if stdioMCP {
				group.Go(func() error {
					return c.MCP.ServeStdio(ctx)
				})
			}

			if err := group.Wait(); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stdioMCP, "stdio", false, "also serve MCP on stdin/stdout")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func newPruneCmd(configPath *string) *cobra.Command {
	var maxMB int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Prune stored proxy documents down to a size bound",
		Long: `Run one housekeeping cycle immediately: delete the oldest stored
proxy documents until their total size fits under the bound. Shares the
advisory lock with a running server, so it is safe to invoke alongside one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if maxMB > 0 {
				cfg.MaxStorageMB = maxMB
			}

			store, err := storage.New(filepath.Join(cfg.DataDir, "storage"),
				storage.WithLogger(logging.NewComponentLogger("Storage")))
			if err != nil {
				return err
			}
			keeper := housekeeper.New(store,
				housekeeper.WithThreshold(cfg.MaxStorageBytes()),
				housekeeper.WithLockStale(cfg.HousekeeperLockStaleFor))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return keeper.Sweep(ctx)
		},
	}
	cmd.Flags().IntVar(&maxMB, "max-mb", 0, "size bound in MiB (default from configuration)")
	return cmd
}

func newTokenCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue, list and revoke group tokens",
	}

	var group string
	var ttl time.Duration
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a signed token for a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadComponents(*configPath)
			if err != nil {
				return err
			}
			token, err := c.IssueToken(cmd.Context(), group, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	createCmd.Flags().StringVar(&group, "group", "", "group the token grants access to")
	createCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	createCmd.MarkFlagRequired("group")
	cmd.AddCommand(createCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List issued tokens by fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadComponents(*configPath)
			if err != nil {
				return err
			}
			records, err := c.Tokens.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no tokens issued")
				return nil
			}
			for _, rec := range records {
				state := "active"
				if rec.Revoked {
					state = "revoked"
				} else if time.Now().After(rec.ExpiresAt) {
					state = "expired"
				}
				fmt.Printf("%s  group=%s  expires=%s  %s\n",
					rec.Fingerprint, rec.Group, rec.ExpiresAt.Format(time.RFC3339), state)
			}
			return nil
		},
	})

	revokeCmd := &cobra.Command{
		Use:   "revoke <token-or-fingerprint>",
		Short: "Revoke a previously issued token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadComponents(*configPath)
			if err != nil {
				return err
			}
			if err := c.Tokens.Revoke(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("token revoked")
			return nil
		},
	}
	cmd.AddCommand(revokeCmd)

	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/polkiloo/refundstatus/internal/refund"
	"github.com/polkiloo/refundstatus/internal/worker"
)

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "refundctl",
		Short:         "Track the status of your tax refund",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.server, "server", defaultServerURL(), "refund status API base URL (env "+envServer+")")
	root.PersistentFlags().StringVar(&opts.tokenFile, "token-file", defaultTokenFile(), "where the session token is kept (env "+envTokenFile+")")
	root.PersistentFlags().IntVar(&opts.year, "year", refund.ActiveTaxYear, "tax year to track; 0 means the most recent one")

	root.AddCommand(
		newAuthCmd(opts, "register", "Create an account and log in"),
		newAuthCmd(opts, "login", "Log in and keep the session token"),
		newLogoutCmd(opts),
		newStatusCmd(opts),
		newRefreshCmd(opts),
		newAdvanceCmd(opts),
		newWatchCmd(opts),
		newLifecycleCmd(opts),
	)
	return root
}

// execute runs root and maps the outcome to an exit code. Store failures were
// already printed by the error reporter and are not repeated.
func execute(ctx context.Context, root *cobra.Command, stderr io.Writer) int {
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if !errors.Is(err, refund.ErrLoadFailed) && !errors.Is(err, refund.ErrSimulateFailed) {
		printError(stderr, "%v", err)
	}
	return 1
}

func newAuthCmd(opts *options, name, short string) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   name + " <login>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(envPassword)
			}
			if password == "" {
				return fmt.Errorf("password is required (--password or %s)", envPassword)
			}

			client, err := opts.anonymousClient()
			if err != nil {
				return err
			}

			var token string
			if name == "register" {
				token, err = client.Register(cmd.Context(), args[0], password)
			} else {
				token, err = client.Login(cmd.Context(), args[0], password)
			}
			if err != nil {
				return err
			}

			if err := opts.saveToken(token); err != nil {
				return err
			}
			printSuccess(opts.stdout, "Logged in as %s", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password (env "+envPassword+")")
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.authorizedClient()
			if errors.Is(err, errNotLoggedIn) {
				printSuccess(opts.stdout, "Already logged out")
				return nil
			}
			if err != nil {
				return err
			}
			if err := client.Logout(cmd.Context()); err != nil {
				opts.logger().Warn("server logout failed", "error", err.Error())
			}
			if err := opts.removeToken(); err != nil {
				return err
			}
			printSuccess(opts.stdout, "Logged out")
			return nil
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current refund status",
		Example: `  refundctl status
  refundctl status --year 2024`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := store.Load(cmd.Context(), opts.year)
			if err != nil {
				return err
			}
			printSnapshot(opts.stdout, snap)
			return nil
		},
	}
}

func newRefreshCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload the refund status from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := store.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			printSnapshot(opts.stdout, snap)
			return nil
		},
	}
}

func newAdvanceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Move the refund to its next status (demo mode only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			before, err := store.Load(cmd.Context(), opts.year)
			if err != nil {
				return err
			}

			after, err := store.Advance(cmd.Context())
			if err != nil {
				return err
			}
			if after.Status == before.Status {
				printSuccess(opts.stdout, "Refund is already %s; nothing to advance", after.Status)
			} else {
				printSuccess(opts.stdout, "Advanced %s -> %s", before.Status, after.Status)
			}
			printSnapshot(opts.stdout, after)
			return nil
		},
	}
}

func newWatchCmd(opts *options) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep showing the refund status as it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}

			var last *refund.Snapshot
			refresher := worker.NewRefresher(store, interval, func(snap *refund.Snapshot) {
				if last != nil && last.Status == snap.Status && last.LastUpdatedAt.Equal(snap.LastUpdatedAt) {
					return
				}
				last = snap
				fmt.Fprintln(opts.stdout, strings.Repeat("-", 32))
				printSnapshot(opts.stdout, snap)
			}, opts.logger())

			refresher.Start(cmd.Context())
			<-cmd.Context().Done()
			refresher.Stop()
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "how often to poll the server")
	return cmd
}

func newLifecycleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lifecycle",
		Short: "List the statuses a refund advances through",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.anonymousClient()
			if err != nil {
				return err
			}
			lifecycle, err := client.Lifecycle(cmd.Context())
			if err != nil {
				opts.logger().Warn("using default refund lifecycle", "error", err.Error())
				lifecycle = refund.DefaultLifecycle()
			}
			for i, s := range lifecycle.Statuses() {
				fmt.Fprintf(opts.stdout, "%d. %s\n", i+1, s)
			}
			return nil
		},
	}
}

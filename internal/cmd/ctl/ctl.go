// Package ctl implements baranexctl, the operator CLI.
package ctl

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	servercmd "github.com/louisbranch/baranex/internal/cmd/server"
	platformcmd "github.com/louisbranch/baranex/internal/platform/cmd"
	"github.com/louisbranch/baranex/internal/platform/logging"
	"github.com/louisbranch/baranex/internal/services/api/app"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

// keySize is the byte length of generated signing and sealing keys.
const keySize = 32

type options struct {
	dbPath     string
	objectsDir string
	out        io.Writer
}

// NewRootCommand builds the baranexctl command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{out: out}
	root := &cobra.Command{
		Use:           "baranexctl",
		Short:         "Operate a Baranex deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.dbPath, "db-path", "", "SQLite database path (default $BARANEX_DB_PATH)")
	root.PersistentFlags().StringVar(&opts.objectsDir, "objects-dir", "", "object storage directory (default $BARANEX_OBJECTS_DIR)")

	root.AddCommand(keygenCmd(opts), seedCmd(opts), backfillCmd(opts), promoteCmd(opts))
	return root
}

// Execute runs baranexctl with args.
func Execute(ctx context.Context, out io.Writer, args []string) error {
	root := NewRootCommand(out)
	root.SetArgs(args)
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceCtl, root.ExecuteContext)
}

// withApp opens the application from the server environment, runs fn and
// closes it.
func (o *options) withApp(ctx context.Context, fn func(*app.App) error) error {
	var cfg servercmd.Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return err
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.objectsDir != "" {
		cfg.ObjectsDir = o.objectsDir
	}
	// The CLI never serves traffic or sends alerts.
	cfg.SMSURL = ""
	cfg.NATSURL = ""

	logger, err := logging.New(logging.Config{Level: "warn", Format: "console"})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	appCfg, err := cfg.AppConfig(logger)
	if err != nil {
		return err
	}
	a, err := app.Open(ctx, appCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close app", zap.Error(err))
		}
	}()
	return fn(a)
}

func keygenCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print fresh signing and sealing keys as env assignments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range []string{"BARANEX_AUTH_SIGNING_KEY", "BARANEX_MFA_SEALING_KEY"} {
				key := make([]byte, keySize)
				if _, err := rand.Read(key); err != nil {
					return fmt.Errorf("generate key: %w", err)
				}
				fmt.Fprintf(opts.out, "%s=%s\n", name, hex.EncodeToString(key))
			}
			return nil
		},
	}
}

func backfillCmd(opts *options) *cobra.Command {
	var barangayID string
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Embed changed barangay records for the assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				result, err := a.Assistant.Backfill(cmd.Context(), barangayID)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(opts.out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			})
		},
	}
	cmd.Flags().StringVar(&barangayID, "barangay", "", "limit to one barangay (default all)")
	return cmd
}

func promoteCmd(opts *options) *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Set a user's role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := user.ParseRole(role)
			if err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				u, err := a.Auth.SetRole(cmd.Context(), email, parsed)
				if err != nil {
					return err
				}
				fmt.Fprintf(opts.out, "%s is now %s\n", u.Email, u.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&role, "role", "", "resident, official, admin or superadmin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

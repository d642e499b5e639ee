package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/conf"
	"github.com/devricklin/inbox-autopilot/internal/data"
)

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage connected accounts",
	}
	cmd.AddCommand(accountAddCmd())
	cmd.AddCommand(accountListCmd())
	return cmd
}

func accountAddCmd() *cobra.Command {
	var (
		a    domain.Account
		mode string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register or update a connected account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.PlatformAccountID == "" {
				return fmt.Errorf("--account-id is required")
			}
			if a.Threshold < 0 || a.Threshold > 100 {
				return fmt.Errorf("--threshold must be between 0 and 100")
			}
			if a.UserID == "" {
				a.UserID = uuid.NewString()
			}
			a.Mode = conf.DefaultAccountMode()
			if mode != "" {
				a.Mode = domain.ParseMode(mode)
			}

			return withAccounts(func(ctx context.Context, repos *data.Repositories, log *zap.Logger) error {
				if err := repos.Account.Save(ctx, &a); err != nil {
					return err
				}
				log.Info("account saved",
					zap.String("user_id", a.UserID),
					zap.String("platform_account_id", a.PlatformAccountID),
					zap.String("mode", string(a.Mode)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&a.UserID, "user-id", "", "local user id (default: new uuid)")
	cmd.Flags().StringVar(&a.PlatformAccountID, "account-id", "", "platform business account id")
	cmd.Flags().StringVar(&a.RecipientScopeID, "scope-id", "", "recipient scope id, if known")
	cmd.Flags().StringVar(&a.DisplayUsername, "username", "", "public username of the account")
	cmd.Flags().StringVar(&a.AccessToken, "token", "", "page or account access token")
	cmd.Flags().StringVar(&mode, "mode", "", "manual, semi_auto or auto (default: $DEFAULT_MODE or manual)")
	cmd.Flags().IntVar(&a.Threshold, "threshold", domain.DefaultThreshold, "semi_auto confidence threshold (0-100)")
	cmd.Flags().StringVar(&a.SystemPrompt, "system-prompt", "", "persona prompt for generated replies")
	return cmd
}

func accountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List connected accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccounts(func(ctx context.Context, repos *data.Repositories, log *zap.Logger) error {
				accounts, err := repos.Account.List(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "USER ID\tACCOUNT ID\tUSERNAME\tMODE\tTHRESHOLD")
				for _, a := range accounts {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", a.UserID, a.PlatformAccountID, a.DisplayUsername, a.Mode, a.Threshold)
				}
				return w.Flush()
			})
		},
	}
}

// withAccounts opens the migrated database and runs fn with its repositories
func withAccounts(fn func(ctx context.Context, repos *data.Repositories, log *zap.Logger) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := data.Migrate(db); err != nil {
		return err
	}
	return fn(context.Background(), data.NewRepositories(db, cfg.ToDataOptions()), log)
}

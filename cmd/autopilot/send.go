package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/data"
)

func sendCmd() *cobra.Command {
	var (
		userID  string
		comment bool
	)
	cmd := &cobra.Command{
		Use:   "send <recipient-or-comment-id> <text>",
		Short: "Send a reply through an account without the pipeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, text := args[0], args[1]
			return withAccounts(func(ctx context.Context, repos *data.Repositories, log *zap.Logger) error {
				account, err := repos.Account.GetByUserID(ctx, userID)
				if err != nil {
					return fmt.Errorf("load account %s: %w", userID, err)
				}

				ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				if comment {
					err = repos.Outbound.ReplyComment(ctx, account, target, text)
				} else {
					err = repos.Outbound.SendDM(ctx, account, target, text)
				}
				if err != nil {
					return err
				}
				log.Info("sent", zap.String("target", target), zap.Bool("comment", comment))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "local user id of the sending account")
	cmd.Flags().BoolVar(&comment, "comment", false, "reply to a comment instead of sending a DM")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"trackitnow-backend/internal/config"
	"trackitnow-backend/internal/notify"
	"trackitnow-backend/internal/types"
)

func notifyCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send notifications through a running notification service",
	}
	cmd.PersistentFlags().StringVar(&baseURL, "url", "", "notification API base URL (overrides NOTIFICATION_SERVICE_URL)")

	client := func() *notify.Client {
		return notify.NewClient(flagOr(baseURL, config.Load().NotificationServiceURL))
	}

	var parcelID string
	userCmd := &cobra.Command{
		Use:   "user <userId> <message>",
		Short: "Notify one user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendWith(cmd.Context(), func(ctx context.Context) (types.MessageResponse, error) {
				return client().NotifyUser(ctx, args[0], args[1], parcelID)
			})
		},
	}
	userCmd.Flags().StringVar(&parcelID, "parcel", "", "parcel the notification is about")

	var roleParcelID string
	roleCmd := &cobra.Command{
		Use:   "role <role> <message>",
		Short: "Notify every user holding a role (admin, client, livreur)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendWith(cmd.Context(), func(ctx context.Context) (types.MessageResponse, error) {
				return client().NotifyRole(ctx, args[0], args[1], roleParcelID)
			})
		},
	}
	roleCmd.Flags().StringVar(&roleParcelID, "parcel", "", "parcel the notification is about")

	systemCmd := &cobra.Command{
		Use:   "system <message>",
		Short: "Broadcast a system notification to every user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendWith(cmd.Context(), func(ctx context.Context) (types.MessageResponse, error) {
				return client().NotifySystem(ctx, args[0])
			})
		},
	}

	parcelCmd := &cobra.Command{
		Use:   "parcel <parcelId> <message>",
		Short: "Record a notification attached to a parcel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendWith(cmd.Context(), func(ctx context.Context) (types.MessageResponse, error) {
				return client().NotifyParcel(ctx, args[0], args[1])
			})
		},
	}

	cmd.AddCommand(userCmd, roleCmd, systemCmd, parcelCmd)
	return cmd
}

func sendWith(parent context.Context, send func(context.Context) (types.MessageResponse, error)) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, 15*time.Second)
	defer cancel()
	resp, err := send(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

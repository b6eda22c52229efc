package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "trackit-server",
		Short:        "TrackItNow backend: chatbot, geolocation and notification services",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(chatbotCmd())
	rootCmd.AddCommand(geolocationCmd())
	rootCmd.AddCommand(notificationsCmd())
	rootCmd.AddCommand(notifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/aretw0/openstars/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to Star in the terminal",
	Long: `Runs one conversation with Star on standard input and output.

When Star offers options, type the option number, its id or its label.
Type /restart to start over and /quit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		plain, _ := cmd.Flags().GetBool("plain")

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		app, err := cli.Build(sc, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		interactive := term.IsTerminal(int(os.Stdout.Fd()))
		return cli.RunChat(sc, app.Orchestrator, cli.ChatOptions{
			SessionID: sessionID,
			In:        os.Stdin,
			Out:       os.Stdout,
			Plain:     plain || !interactive,
			Banner:    interactive,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("session", "", "Session ID (defaults to a random UUID)")
	chatCmd.Flags().Bool("plain", false, "Print raw markdown instead of rendering it")
}

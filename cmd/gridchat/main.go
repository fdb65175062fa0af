package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/gridchat/cmd/gridchat/internal"
	"github.com/tinyland-inc/gridchat/cmd/gridchat/internal/chat"
	"github.com/tinyland-inc/gridchat/cmd/gridchat/internal/version"
)

func NewGridchatCommand() *cobra.Command {
	short := fmt.Sprintf("gridchat - terminal chat client v%s", internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "gridchat",
		Short:   short,
		Example: "gridchat chat",
	}

	cmd.AddCommand(
		chat.NewChatCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewGridchatCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

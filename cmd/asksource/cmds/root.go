package cmds

import (
	"asksource-be/internal/config"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	backendURL string
	token      string
	direct     bool
	project    string
	mode       string
}

// NewRootCommand builds the asksource terminal client.
func NewRootCommand() *cobra.Command {
	cfg := config.Load()
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "asksource",
		Short:         "Ask questions about your document projects from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.backendURL, "backend", cfg.Client.BackendURL, "asksource backend base URL")
	flags.StringVar(&opts.token, "token", cfg.Client.Token, "bearer token (defaults to ASKSOURCE_TOKEN)")
	flags.BoolVar(&opts.direct, "direct", false, "call the answering service directly instead of the backend proxy")
	flags.StringVar(&opts.project, "project", "", "project to query (defaults to the first available)")
	flags.StringVar(&opts.mode, "mode", "", "search mode: simple, hybrid or advanced")

	root.AddCommand(
		newChatCommand(cfg, opts),
		newAskCommand(cfg, opts),
		newConversationsCommand(cfg, opts),
	)
	return root
}

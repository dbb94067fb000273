package cmds

import (
	"asksource-be/internal/config"

	"github.com/spf13/cobra"
)

func newConversationsCommand(cfg *config.Config, opts *rootOptions) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "List your conversations, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}
			defer s.log.Sync()

			if err := s.start(opts); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			s.listConversations(out)
			if show {
				newTranscript(out).render(s.store.Snapshot())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "also print the most recent conversation")
	return cmd
}

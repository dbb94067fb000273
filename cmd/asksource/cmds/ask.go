package cmds

import (
	"fmt"
	"strings"

	"asksource-be/internal/config"
	"asksource-be/pkg/apperror"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newAskCommand(cfg *config.Config, opts *rootOptions) *cobra.Command {
	var conversation string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}
			defer s.log.Sync()

			if err := s.start(opts); err != nil {
				return err
			}
			if conversation != "" {
				id, err := uuid.Parse(conversation)
				if err != nil {
					return apperror.Newf(apperror.KindValidationError, "invalid conversation id %q", conversation)
				}
				if err := s.store.SetActiveConversation(id); err != nil {
					return err
				}
			}

			s.store.SetDraft(strings.Join(args, " "))
			outcome, err := s.pipeline.Submit(s.ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, outcome.AssistantTurn.Content)
			for _, warning := range outcome.Warnings {
				noticeColor.Fprintf(cmd.ErrOrStderr(), "Not saved: %s\n", apperror.Message(warning))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&conversation, "conversation", "", "conversation id (defaults to the most recent)")
	return cmd
}

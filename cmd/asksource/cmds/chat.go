package cmds

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"asksource-be/internal/config"
	"asksource-be/internal/entity"
	"asksource-be/pkg/apperror"
	"asksource-be/pkg/chat/bootstrap"
	"asksource-be/pkg/chat/dispatch"
	"asksource-be/pkg/chat/pipeline"

	"github.com/spf13/cobra"
)

const chatHelp = `Commands:
  /new [title]       start a new conversation
  /list              list conversations
  /switch <n>        open conversation n from /list
  /project [name]    show projects or select one
  /mode [name]       show or set the search mode (simple, hybrid, advanced)
  /limit <n>         override the result limit
  /dense <n>         override the dense limit (hybrid modes)
  /sparse <n>        override the sparse limit (hybrid modes)
  /retry             send the question that got no answer again
  /quit              leave
Anything else is sent as a question.`

func newChatCommand(cfg *config.Config, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat against the selected project",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}
			defer s.log.Sync()

			out := cmd.OutOrStdout()
			stop := s.store.Watch(newTranscript(out).render)
			defer stop()

			if err := s.start(opts); err != nil {
				return err
			}
			s.status(out)
			noticeColor.Fprintln(out, "Type /help for commands.")

			return s.repl(cmd.InOrStdin(), out)
		},
	}
}

func (s *session) repl(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if quit := s.execute(scanner.Text(), out); quit {
			return nil
		}
	}
}

// execute runs one input line and reports whether the user asked to leave.
// Questions are handed over untrimmed so a rollback restores them verbatim.
func (s *session) execute(line string, out io.Writer) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if !strings.HasPrefix(trimmed, "/") {
		s.ask(line, out)
		return false
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(trimmed, "/"), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch strings.ToLower(name) {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(out, chatHelp)
	case "new":
		err = s.newConversation(arg)
	case "list":
		s.listConversations(out)
	case "switch":
		err = s.switchConversation(arg)
	case "project":
		err = s.project(arg, out)
	case "mode":
		err = s.mode(arg, out)
	case "limit", "dense", "sparse":
		err = s.override(strings.ToLower(name), arg, out)
	case "retry":
		err = s.retry(out)
	default:
		err = apperror.Newf(apperror.KindValidationError, "unknown command /%s (try /help)", name)
	}
	if err != nil {
		errorColor.Fprintln(out, apperror.Message(err))
	}
	return false
}

func (s *session) ask(text string, out io.Writer) {
	s.store.SetDraft(text)
	s.submit(out)
}

// retry resubmits the draft a rollback put back.
func (s *session) retry(out io.Writer) error {
	if strings.TrimSpace(s.store.Draft()) == "" {
		return apperror.New(apperror.KindEmptyPrompt, "nothing to retry")
	}
	s.submit(out)
	return nil
}

func (s *session) submit(out io.Writer) {
	noticeColor.Fprintln(out, "...")

	outcome, err := s.pipeline.Submit(s.ctx)
	if err != nil {
		if outcome != nil && outcome.State == pipeline.StateRolledBack {
			errorColor.Fprintf(out, "No answer: %s\n", apperror.Message(err))
			noticeColor.Fprintf(out, "Kept: %s\n", s.store.Draft())
			noticeColor.Fprintln(out, "Type /retry to send it again.")
			return
		}
		errorColor.Fprintln(out, apperror.Message(err))
		return
	}
	if outcome.Detached {
		noticeColor.Fprintln(out, "The conversation changed before the answer arrived; it was saved anyway.")
	}
	for _, warning := range outcome.Warnings {
		noticeColor.Fprintf(out, "Not saved: %s\n", apperror.Message(warning))
	}
}

func (s *session) newConversation(title string) error {
	if title == "" {
		title = bootstrap.DefaultTitle
	}
	conv, err := s.source.CreateConversation(s.ctx, title)
	if err != nil {
		return err
	}

	list := append([]entity.Conversation{*conv}, s.store.Snapshot().Conversations...)
	s.store.ReplaceConversations(list)
	return s.store.SetActiveConversation(conv.Id)
}

func (s *session) listConversations(out io.Writer) {
	snap := s.store.Snapshot()
	for i, conv := range snap.Conversations {
		marker := " "
		if conv.Id == snap.ActiveID {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %2d. %s (%d messages, %s)\n", marker, i+1, conv.Title, len(conv.Turns), conv.LastUpdated().Local().Format("2006-01-02 15:04"))
	}
}

func (s *session) switchConversation(arg string) error {
	n, err := strconv.Atoi(arg)
	conversations := s.store.Snapshot().Conversations
	if err != nil || n < 1 || n > len(conversations) {
		return apperror.Newf(apperror.KindValidationError, "usage: /switch <1-%d>", len(conversations))
	}
	return s.store.SetActiveConversation(conversations[n-1].Id)
}

func (s *session) project(arg string, out io.Writer) error {
	if arg != "" {
		s.store.SelectProject(arg)
		noticeColor.Fprintf(out, "Project: %s\n", arg)
		return nil
	}

	projects, err := s.projects.ListProjects(s.ctx)
	if err != nil {
		return err
	}
	current := s.store.Project()
	for _, p := range projects {
		marker := " "
		if p == current {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, p)
	}
	return nil
}

func (s *session) mode(arg string, out io.Writer) error {
	if arg == "" {
		s.status(out)
		return nil
	}
	strategy, err := dispatch.ParseStrategy(arg)
	if err != nil {
		return err
	}
	s.store.SetSearch(dispatch.Params{Strategy: strategy})
	s.status(out)
	return nil
}

func (s *session) override(field, arg string, out io.Writer) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return apperror.Newf(apperror.KindInvalidParameter, "/%s needs a positive number", field)
	}

	params := s.store.Search()
	switch field {
	case "limit":
		params.Overrides.Limit = &n
	case "dense":
		params.Overrides.DenseLimit = &n
	case "sparse":
		params.Overrides.SparseLimit = &n
	}
	s.store.SetSearch(params)
	s.status(out)
	return nil
}

// status prints the project and the effective search parameters.
func (s *session) status(out io.Writer) {
	snap := s.store.Snapshot()
	project := snap.Project
	if project == "" {
		project = "(none, use /project)"
	}

	params := snap.Search
	req, err := dispatch.BuildRequest(params.Strategy, "-", "-", params.Overrides)
	if err != nil {
		noticeColor.Fprintf(out, "Project: %s | mode: %s\n", project, params.Strategy)
		return
	}
	limits := fmt.Sprintf("limit %d", req.Body.Limit)
	if req.Body.DenseLimit != nil && req.Body.SparseLimit != nil {
		limits += fmt.Sprintf(", dense %d, sparse %d", *req.Body.DenseLimit, *req.Body.SparseLimit)
	}
	noticeColor.Fprintf(out, "Project: %s | mode: %s (%s)\n", project, params.Strategy, limits)
}

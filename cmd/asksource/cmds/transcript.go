package cmds

import (
	"fmt"
	"io"

	"asksource-be/internal/entity"
	"asksource-be/pkg/chat/store"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

var (
	headerColor    = color.New(color.FgMagenta, color.Bold)
	userColor      = color.New(color.FgCyan, color.Bold)
	assistantColor = color.New(color.FgGreen)
	noticeColor    = color.New(color.FgYellow)
	errorColor     = color.New(color.FgRed)
)

// transcript prints the active conversation incrementally as store snapshots arrive.
type transcript struct {
	out    io.Writer
	convID uuid.UUID
	shown  int
}

func newTranscript(out io.Writer) *transcript {
	return &transcript{out: out}
}

func (t *transcript) render(snap *store.Snapshot) {
	conv, ok := snap.Active()
	if !ok {
		return
	}

	if conv.Id != t.convID {
		t.convID = conv.Id
		t.shown = 0
		headerColor.Fprintf(t.out, "\n== %s ==\n", conv.Title)
	}

	if len(conv.Turns) < t.shown {
		noticeColor.Fprintln(t.out, "(last message withdrawn)")
		t.shown = len(conv.Turns)
		return
	}

	for _, turn := range conv.Turns[t.shown:] {
		printTurn(t.out, turn)
	}
	t.shown = len(conv.Turns)
}

func printTurn(out io.Writer, turn entity.Turn) {
	switch turn.Role {
	case entity.RoleUser:
		userColor.Fprint(out, "you> ")
		fmt.Fprintln(out, turn.Content)
	default:
		assistantColor.Fprintln(out, turn.Content)
		if strategy, ok := turn.Metadata["strategy"].(string); ok {
			noticeColor.Fprintf(out, "   [%s]\n", strategy)
		}
	}
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aretw0/openstars/internal/presentation/tui"
	"github.com/aretw0/openstars/pkg/domain"
	"github.com/aretw0/openstars/pkg/orchestrator"
	"github.com/google/uuid"
)

// ChatOptions configures an interactive terminal conversation.
type ChatOptions struct {
	SessionID string
	In        io.Reader
	Out       io.Writer
	// Plain prints raw markdown instead of rendering it with glamour.
	Plain bool
	// Banner prints the OpenStars banner before the first message.
	Banner bool
}

// lockedWriter serializes writes from the printer and the input loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// RunChat drives one conversation from a terminal until the input ends, the
// visitor types /quit or ctx is cancelled.
//
// Commands: /restart reopens the chat under a new generation, /quit leaves.
// While Star offers options the visitor may type the option number, its id or
// its label; anything else is submitted as free text.
func RunChat(ctx context.Context, o *orchestrator.Orchestrator, opts ChatOptions) error {
	out := &lockedWriter{w: opts.Out}
	id := opts.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	render := func(md string) string { return md }
	if !opts.Plain {
		r := tui.NewRenderer()
		render = func(md string) string {
			s, err := r(md)
			if err != nil {
				return md
			}
			return s
		}
	}
	if opts.Banner {
		tui.PrintBanner(out)
	}

	events, unsubscribe := o.Subscribe(id)
	printed := make(chan struct{})
	defer func() {
		unsubscribe()
		<-printed
	}()

	var generation atomic.Uint64
	go func() {
		defer close(printed)
		for ev := range events {
			if ev.Generation < generation.Load() {
				continue
			}
			fmt.Fprintln(out, render(tui.MessageMarkdown(ev.Message)))
		}
	}()

	gen, err := o.Open(ctx, id)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	generation.Store(gen)
	systemMessage(out, "Session %s started. Type /restart to start over, /quit to leave.", id)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(opts.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/restart":
				gen, err := o.Open(ctx, id)
				if err != nil {
					return fmt.Errorf("restart session: %w", err)
				}
				generation.Store(gen)
				systemMessage(out, "Starting over.")
				continue
			}

			receipt, err := submitLine(ctx, o, id, line)
			if err != nil {
				systemMessage(out, "%v", err)
				continue
			}
			switch {
			case receipt.Rejected:
				systemMessage(out, "Star can't take that right now (%s).", receipt.Reason)
			case receipt.Queued:
				systemMessage(out, "Star is still working. Your answer is next in line.")
			}
		}
	}
}

// submitLine sends line as a choice when Star is waiting on one it matches,
// and as free text otherwise.
func submitLine(ctx context.Context, o *orchestrator.Orchestrator, id, line string) (orchestrator.Receipt, error) {
	snap, err := o.Snapshot(id)
	if err != nil {
		return orchestrator.Receipt{}, err
	}
	if choiceID, ok := resolveChoice(snap.AwaitingOptions, line); ok {
		return o.ChooseOption(ctx, id, snap.AwaitingMessageID, choiceID)
	}
	return o.TextSubmitted(ctx, id, line)
}

// resolveChoice matches input against an option number, id or label.
func resolveChoice(options []domain.Choice, input string) (string, bool) {
	if len(options) == 0 {
		return "", false
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1].ID, true
		}
		return "", false
	}
	for _, opt := range options {
		if strings.EqualFold(opt.ID, input) || strings.EqualFold(opt.Label, input) ||
			strings.EqualFold(labelText(opt.Label), input) {
			return opt.ID, true
		}
	}
	return "", false
}

// labelText strips the leading emoji of an option label.
func labelText(label string) string {
	if i := strings.IndexByte(label, ' '); i >= 0 && !isASCIIWord(label[:i]) {
		return strings.TrimSpace(label[i+1:])
	}
	return label
}

func isASCIIWord(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return s != ""
}

func systemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

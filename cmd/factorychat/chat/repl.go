package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/factorychat/pkg/chatapi"
	"github.com/papercomputeco/factorychat/pkg/chatstream"
	"github.com/papercomputeco/factorychat/pkg/cliui"
	"github.com/papercomputeco/factorychat/pkg/dotdir"
	"github.com/papercomputeco/factorychat/pkg/rooms"
	"github.com/papercomputeco/factorychat/pkg/session"
)

type chatter interface {
	CreateNewChat(ctx context.Context, content string, onChunk chatstream.ChunkHandler) session.CreateResult
	SendToExistingChat(ctx context.Context, roomID, content, tempID string, onChunk chatstream.ChunkHandler) session.SendResult
	LoadHistory(ctx context.Context, roomID string) ([]session.Message, error)
}

type roomLister interface {
	Init(ctx context.Context) ([]rooms.Room, error)
	Refresh(ctx context.Context) ([]rooms.Room, error)
	LoadMore(ctx context.Context) ([]rooms.Room, error)
	Rooms() []rooms.Room
	HasMore() bool
}

// activeStore persists the room the session is talking to.
type activeStore interface {
	Load() (*dotdir.ActiveRoom, error)
	Save(room *dotdir.ActiveRoom) error
	Clear() error
}

type dotdirActive struct {
	manager *dotdir.Manager
	dir     string
}

func (d dotdirActive) Load() (*dotdir.ActiveRoom, error) { return d.manager.LoadActiveRoom(d.dir) }
func (d dotdirActive) Save(r *dotdir.ActiveRoom) error   { return d.manager.SaveActiveRoom(r, d.dir) }
func (d dotdirActive) Clear() error                      { return d.manager.ClearActiveRoom(d.dir) }

const helpText = `Commands:
  /new          start a new room
  /rooms        list rooms (/more loads the next page, /refresh reloads)
  /room <id>    switch to a room and show its history
  /retry        send the last failed message again
  /exit         quit (Ctrl+D works too)`

// repl is one interactive chat session.
type repl struct {
	chat   chatter
	rooms  roomLister
	active activeStore
	logger *zap.Logger

	in  *bufio.Scanner
	out io.Writer

	// interactive enables prompts and the retry question.
	interactive bool

	roomID   string
	roomName string
	messages []session.Message

	pending    int
	lastFailed string
}

// start resolves the room to resume and loads the room list and its
// history concurrently.
func (r *repl) start(ctx context.Context, roomID string, fresh bool) error {
	switch {
	case fresh:
		if err := r.active.Clear(); err != nil {
			return err
		}
	case roomID == "":
		active, err := r.active.Load()
		if err != nil {
			return err
		}
		if active != nil {
			roomID, r.roomName = active.RoomID, active.RoomName
		}
	}

	var (
		listed  []rooms.Room
		listErr error
		history []session.Message
		histErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		listed, listErr = r.rooms.Init(gctx)
		return nil
	})
	if roomID != "" {
		g.Go(func() error {
			history, histErr = r.chat.LoadHistory(gctx, roomID)
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintln(r.out)
	if listErr != nil {
		r.logger.Warn("loading room list", zap.Error(listErr))
		fmt.Fprintf(r.out, "  %s %s\n", cliui.FailMark, chatapi.UserMessage(listErr))
	} else {
		r.printRoomCount(len(listed))
	}

	switch {
	case roomID == "":
		fmt.Fprintf(r.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	case histErr != nil:
		fmt.Fprintf(r.out, "  %s Could not resume room %s: %s\n",
			cliui.FailMark, cliui.IDStyle.Render(roomID), chatapi.UserMessage(histErr))
		fmt.Fprintf(r.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
		r.roomName = ""
	default:
		r.roomID = roomID
		r.roomName = nameFor(roomID, listed, r.roomName)
		r.messages = history
		fmt.Fprintf(r.out, "  %s Resuming %s %s %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(r.roomName),
			cliui.IDStyle.Render(roomID),
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(history))),
		)
		r.printTranscript(history)
	}

	if r.interactive {
		fmt.Fprintf(r.out, "\n  %s\n", cliui.DimStyle.Render("Type your question and press Enter. /help lists commands."))
	}
	fmt.Fprintln(r.out)

	return nil
}

// loop reads questions until EOF or /exit.
func (r *repl) loop(ctx context.Context) error {
	for {
		if r.interactive {
			fmt.Fprint(r.out, cliui.UserPrompt)
		}
		if !r.in.Scan() {
			break
		}

		input := strings.TrimSpace(r.in.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := r.command(ctx, input)
			if err != nil {
				return err
			}
			if quit {
				break
			}
			continue
		}

		r.ask(ctx, input)
	}

	if err := r.in.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

func (r *repl) command(ctx context.Context, input string) (bool, error) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/exit", "/quit":
		return true, nil

	case "/help":
		fmt.Fprintf(r.out, "%s\n\n", helpText)

	case "/new":
		r.roomID, r.roomName, r.messages = "", "", nil
		if err := r.active.Clear(); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))

	case "/rooms":
		r.listRooms(ctx, r.rooms.Init)
	case "/refresh":
		r.listRooms(ctx, r.rooms.Refresh)
	case "/more":
		if !r.rooms.HasMore() {
			fmt.Fprintf(r.out, "  %s\n\n", cliui.DimStyle.Render("No more rooms."))
			break
		}
		r.listRooms(ctx, r.rooms.LoadMore)

	case "/room":
		if arg == "" {
			fmt.Fprintf(r.out, "  %s usage: /room <id>\n\n", cliui.FailMark)
			break
		}
		return false, r.switchRoom(ctx, arg)

	case "/retry":
		if r.lastFailed == "" {
			fmt.Fprintf(r.out, "  %s\n\n", cliui.DimStyle.Render("Nothing to retry."))
			break
		}
		r.ask(ctx, r.lastFailed)

	default:
		fmt.Fprintf(r.out, "  %s unknown command %s\n%s\n\n", cliui.FailMark, name, helpText)
	}

	return false, nil
}

// ask sends input to the current room, creating one first when the
// session has none.
func (r *repl) ask(ctx context.Context, input string) {
	if r.roomID == "" {
		r.create(ctx, input)
		return
	}
	r.send(ctx, input)
}

func (r *repl) create(ctx context.Context, input string) {
	for {
		printer := cliui.NewAnswerPrinter(r.out)
		res := r.chat.CreateNewChat(ctx, input, printer.Handle)

		if res.Success() {
			printer.Finish(lastAnswer(res.Thread.Messages))
			r.roomID = res.Thread.ID
			r.roomName = res.RoomName
			r.messages = slices.Clone(res.Thread.Messages)
			r.lastFailed = ""
			r.saveActive()

			fmt.Fprintf(r.out, "  %s Created %s %s\n\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(r.roomName),
				cliui.IDStyle.Render(r.roomID),
			)
			return
		}

		printer.Finish("")
		r.fail(input, res.Err)

		if !res.ShouldRetry || !r.confirm("The answer took too long. Ask again?") {
			return
		}
	}
}

func (r *repl) send(ctx context.Context, input string) {
	r.pending++
	tempID := fmt.Sprintf("pending-%d", r.pending)

	previous := r.messages
	r.messages = append(slices.Clone(previous), session.Message{
		ID:        tempID,
		Role:      session.RoleUser,
		Content:   input,
		CreatedAt: time.Now(),
	})

	printer := cliui.NewAnswerPrinter(r.out)
	res := r.chat.SendToExistingChat(ctx, r.roomID, input, tempID, printer.Handle)
	if !res.Success() {
		printer.Finish("")
		r.messages = previous
		r.fail(input, res.Err)
		return
	}

	printer.Finish(res.AssistantMessage.Content)
	r.messages = append(slices.Clone(previous), *res.FinalUserMessage(), *res.AssistantMessage)
	r.lastFailed = ""
}

// fail reports err and keeps input for /retry.
func (r *repl) fail(input string, err error) {
	r.lastFailed = input
	fmt.Fprintf(r.out, "  %s %s\n", cliui.FailMark, chatapi.UserMessage(err))
	fmt.Fprintf(r.out, "  %s\n\n", cliui.DimStyle.Render("Your message was kept. Type /retry to send it again."))
}

// confirm asks a yes/no question. Non-interactive sessions never confirm.
func (r *repl) confirm(question string) bool {
	if !r.interactive {
		return false
	}

	fmt.Fprintf(r.out, "  %s [y/N] ", question)
	if !r.in.Scan() {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(r.in.Text())) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (r *repl) switchRoom(ctx context.Context, roomID string) error {
	history, err := r.chat.LoadHistory(ctx, roomID)
	if err != nil {
		fmt.Fprintf(r.out, "  %s %s\n\n", cliui.FailMark, chatapi.UserMessage(err))
		return nil
	}

	r.roomID = roomID
	r.roomName = nameFor(roomID, r.rooms.Rooms(), "")
	r.messages = history
	r.lastFailed = ""
	r.saveActive()

	fmt.Fprintf(r.out, "  %s Switched to %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(r.roomName),
		cliui.IDStyle.Render(roomID),
	)
	r.printTranscript(history)
	fmt.Fprintln(r.out)
	return nil
}

func (r *repl) listRooms(ctx context.Context, load func(context.Context) ([]rooms.Room, error)) {
	listed, err := load(ctx)
	if err != nil {
		fmt.Fprintf(r.out, "  %s %s\n\n", cliui.FailMark, chatapi.UserMessage(err))
		return
	}

	for _, room := range listed {
		marker := " "
		if room.RoomID == r.roomID {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %s\n", marker, cliui.RoomLine(room.RoomID, room.RoomName, room.Date))
	}
	r.printRoomCount(len(listed))
	fmt.Fprintln(r.out)
}

func (r *repl) printRoomCount(n int) {
	suffix := ""
	if r.rooms.HasMore() {
		suffix = ", more available"
	}
	fmt.Fprintf(r.out, "  %s\n", cliui.DimStyle.Render(fmt.Sprintf("%d rooms%s", n, suffix)))
}

func (r *repl) printTranscript(messages []session.Message) {
	if len(messages) == 0 {
		return
	}

	text := cliui.Transcript(transcriptEntries(messages))
	if r.interactive {
		if rendered, err := cliui.RenderMarkdown(text); err == nil {
			text = rendered
		}
	}
	fmt.Fprintf(r.out, "\n%s\n", text)
}

// nameFor prefers the listed name, then known.
func nameFor(roomID string, listed []rooms.Room, known string) string {
	for _, room := range listed {
		if room.RoomID == roomID {
			return room.RoomName
		}
	}
	if known != "" {
		return known
	}
	return rooms.DefaultName
}

func (r *repl) saveActive() {
	err := r.active.Save(&dotdir.ActiveRoom{RoomID: r.roomID, RoomName: r.roomName})
	if err != nil {
		r.logger.Warn("saving active room", zap.String("room_id", r.roomID), zap.Error(err))
	}
}

func transcriptEntries(messages []session.Message) [][2]string {
	entries := make([][2]string, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, [2]string{string(m.Role), m.Content})
	}
	return entries
}

func lastAnswer(messages []session.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == session.RoleAssistant {
			return messages[i].Content
		}
	}
	return ""
}

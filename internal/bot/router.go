package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nikishkaa/docx-bot/internal/metrics"
	"github.com/nikishkaa/docx-bot/internal/service"
	"github.com/nikishkaa/docx-bot/internal/telegram"
)

// Inference is the model lifecycle the AI chat mode needs.
type Inference interface {
	Acquire(ctx context.Context) error
	Release()
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrorLogger receives operator-facing failure records.
type ErrorLogger interface {
	Log(msg string, userID int64, info string)
}

// Settings tunes the router.
type Settings struct {
	// InferenceTimeout bounds a single generation. Zero means no limit.
	InferenceTimeout time.Duration
	// Location renders file modification times.
	Location *time.Location
}

type request struct {
	ctx    context.Context
	span   trace.Span
	log    *slog.Logger
	msg    *telegram.Message
	sess   *Session
	chatID int64
	userID int64
	text   string
	// args is the text after a command or button prefix.
	args string
}

type handlerFunc func(q *request) error

type prefixRoute struct {
	prefix string
	handle handlerFunc
}

// Router turns updates into file store, ledger and inference operations.
type Router struct {
	svc      service.FileService
	tg       telegram.Messenger
	ai       Inference
	errs     ErrorLogger
	sessions *Sessions
	metrics  *metrics.Bot
	log      *slog.Logger
	tracer   trace.Tracer

	aiTimeout time.Duration
	loc       *time.Location

	commands map[string]handlerFunc
	buttons  map[string]handlerFunc
	prefixes []prefixRoute
	modes    map[Mode]handlerFunc
}

// NewRouter wires a Router. ai may be nil to disable AI chat; m may be nil.
func NewRouter(svc service.FileService, tg telegram.Messenger, ai Inference, errs ErrorLogger, m *metrics.Bot, log *slog.Logger, s Settings) *Router {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	r := &Router{
		svc:       svc,
		tg:        tg,
		ai:        ai,
		errs:      errs,
		sessions:  NewSessions(),
		metrics:   m,
		log:       log,
		tracer:    otel.Tracer("github.com/nikishkaa/docx-bot/internal/bot"),
		aiTimeout: s.InferenceTimeout,
		loc:       loc,
	}

	r.commands = map[string]handlerFunc{
		"/start":   r.start,
		"/help":    r.help,
		"/files":   r.showCategories,
		"/get":     r.get,
		"/search":  r.searchCommand,
		"/stats":   r.fileStats,
		"/mystats": r.myStats,
		"/ai":      r.enterAI,
		"/exit":    r.exitAI,
	}
	r.buttons = map[string]handlerFunc{
		btnFiles:   r.showCategories,
		btnUpload:  r.uploadPrompt,
		btnSearch:  r.searchPrompt,
		btnMyStats: r.myStats,
		btnAI:      r.enterAI,
		btnHelp:    r.help,
		btnBack:    r.showCategories,
		btnMain:    r.mainMenu,
		btnExitAI:  r.exitAI,
		btnNoSub:   r.skipSubcategory,
	}
	r.prefixes = []prefixRoute{
		{prefix: prefixCategory, handle: r.category},
		{prefix: prefixSubcategory, handle: r.subcategory},
		{prefix: prefixFile, handle: r.download},
	}
	r.modes = map[Mode]handlerFunc{
		ModeChooseCategory:    r.repromptCategory,
		ModeChooseSubcategory: r.repromptSubcategory,
		ModeSearch:            r.searchText,
		ModeAIChat:            r.chat,
	}
	return r
}

// Sessions exposes the per-chat state registry.
func (r *Router) Sessions() *Sessions {
	return r.sessions
}

// Handle processes one update. It satisfies telegram.Handler.
func (r *Router) Handle(ctx context.Context, u telegram.Update) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		r.metrics.Update("other")
		return
	}

	correlationID := uuid.NewString()
	ctx, span := r.tracer.Start(ctx, "bot.update", trace.WithAttributes(
		attribute.Int64("telegram.update_id", u.UpdateID),
		attribute.Int64("telegram.chat_id", msg.Chat.ID),
		attribute.String("correlation_id", correlationID),
	))
	defer span.End()

	q := &request{
		ctx:    ctx,
		span:   span,
		msg:    msg,
		chatID: msg.Chat.ID,
		text:   strings.TrimSpace(msg.Text),
		sess:   r.sessions.Get(msg.Chat.ID),
	}
	if msg.From != nil {
		q.userID = msg.From.ID
	}
	q.log = r.log.With("correlation_id", correlationID, "chat_id", q.chatID, "user_id", q.userID)

	defer func() {
		if rec := recover(); rec != nil {
			r.fail(q, fmt.Errorf("panic: %v", rec))
		}
	}()

	kind, h := r.route(q)
	r.metrics.Update(kind)
	span.SetAttributes(attribute.String("bot.route", kind), attribute.String("bot.mode", q.sess.Mode.String()))
	q.log.Debug("update received", "route", kind, "mode", q.sess.Mode.String())

	if err := h(q); err != nil {
		r.fail(q, err)
	}
}

// route picks a handler: documents, AI chat, commands, exact buttons,
// prefixed buttons, then whatever the session is waiting for.
func (r *Router) route(q *request) (string, handlerFunc) {
	if q.msg.Document != nil {
		return "document", r.receiveDocument
	}
	text := q.text
	if text == "" {
		return "other", r.unknown
	}
	if q.sess.Mode == ModeAIChat && !leavesAIChat(text) {
		return "text", r.chat
	}

	if strings.HasPrefix(text, "/") {
		cmd, args := splitCommand(text)
		q.args = args
		if h, ok := r.commands[cmd]; ok {
			return "command", h
		}
		return "command", r.unknown
	}
	if h, ok := r.buttons[text]; ok {
		return "button", h
	}
	for _, p := range r.prefixes {
		if rest, ok := strings.CutPrefix(text, p.prefix); ok {
			q.args = strings.TrimSpace(rest)
			return "button", p.handle
		}
	}
	if h, ok := r.modes[q.sess.Mode]; ok {
		return "text", h
	}
	return "text", r.unknown
}

// splitCommand turns "/Get@docx_bot a.zip" into ("/get", "a.zip").
func splitCommand(text string) (string, string) {
	cmd, args, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

func leavesAIChat(text string) bool {
	if text == btnExitAI || text == btnMain {
		return true
	}
	if !strings.HasPrefix(text, "/") {
		return false
	}
	cmd, _ := splitCommand(text)
	return cmd == "/exit" || cmd == "/start"
}

func (r *Router) reply(q *request, text string, kb *telegram.ReplyKeyboard) error {
	return r.tg.SendMessage(q.ctx, q.chatID, text, kb)
}

func (r *Router) chatAction(q *request, action string) {
	if err := r.tg.SendChatAction(q.ctx, q.chatID, action); err != nil {
		q.log.Debug("chat action failed", "action", action, "error", err)
	}
}

// fail reports an unexpected fault to the operator and a generic notice to the user.
func (r *Router) fail(q *request, err error) {
	q.span.RecordError(err)
	q.span.SetStatus(codes.Error, err.Error())
	q.log.Error("update failed", "error", err)
	if r.errs != nil {
		r.errs.Log(err.Error(), q.userID, r.describe(q))
	}

	kb := mainMenu()
	if q.sess.Mode == ModeAIChat {
		kb = aiMenu()
	}
	if sendErr := r.reply(q, msgFailure, kb); sendErr != nil {
		q.log.Error("send failure notice", "error", sendErr)
	}
}

func (r *Router) describe(q *request) string {
	if d := q.msg.Document; d != nil {
		return fmt.Sprintf("chat %d, document %q", q.chatID, d.FileName)
	}
	return "chat " + strconv.FormatInt(q.chatID, 10) + ", mode " + q.sess.Mode.String() + ", text " + strconv.Quote(q.text)
}

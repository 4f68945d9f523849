package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nikishkaa/docx-bot/internal/inference"
	"github.com/nikishkaa/docx-bot/internal/model"
	"github.com/nikishkaa/docx-bot/internal/service"
	"github.com/nikishkaa/docx-bot/internal/taxonomy"
	"github.com/nikishkaa/docx-bot/internal/telegram"
)

const (
	msgFailure = "❌ Something went wrong. Please try again later."
	msgWelcome = "👋 Hi! I keep files sorted by category.\n\n" +
		"Send me a document to upload it, or pick an option below."
	msgHelp = "ℹ️ What I can do:\n\n" +
		"/files - browse files by category\n" +
		"/get <name> - download a file by name\n" +
		"/search <text> - find files (wildcards * and ? work too)\n" +
		"/stats <name> - download statistics of a file\n" +
		"/mystats - your downloads\n" +
		"/ai - chat with the AI assistant, /exit to leave\n\n" +
		"To upload, just send me a document and choose where it goes."
)

func (r *Router) start(q *request) error {
	r.resetSession(q)
	return r.reply(q, msgWelcome, mainMenu())
}

func (r *Router) mainMenu(q *request) error {
	r.resetSession(q)
	return r.reply(q, "🏠 Main menu", mainMenu())
}

// resetSession releases anything the session holds and forgets it.
func (r *Router) resetSession(q *request) {
	if q.sess.Mode == ModeAIChat {
		r.leaveAI(q)
	}
	r.sessions.Reset(q.chatID)
}

func (r *Router) help(q *request) error {
	return r.reply(q, msgHelp, mainMenu())
}

func (r *Router) unknown(q *request) error {
	return r.reply(q, "❓ Unknown command. Use /help to see what I can do.", nil)
}

// Browsing

func (r *Router) showCategories(q *request) error {
	q.sess.Mode = ModeIdle
	q.sess.Pending = nil
	q.sess.BrowseCategory, q.sess.BrowseSubcategory = "", ""
	return r.reply(q, "📁 Choose a category:", categoryMenu(r.svc.Categories()))
}

func (r *Router) findCategory(name string) (taxonomy.Category, bool) {
	for _, c := range r.svc.Categories() {
		if c.Name == name {
			return c, true
		}
	}
	return taxonomy.Category{}, false
}

func (r *Router) category(q *request) error {
	switch q.sess.Mode {
	case ModeChooseCategory:
		return r.chooseCategory(q)
	case ModeChooseSubcategory:
		return r.repromptSubcategory(q)
	}

	cat, ok := r.findCategory(q.args)
	if !ok {
		return r.reply(q, fmt.Sprintf("❌ Unknown category %s", q.args), categoryMenu(r.svc.Categories()))
	}

	q.sess.Mode = ModeIdle
	q.sess.Results = nil
	q.sess.BrowseCategory, q.sess.BrowseSubcategory = cat.Name, ""

	files, err := r.svc.List(q.ctx, cat.Name, "")
	if err != nil {
		return fmt.Errorf("list %s: %w", cat.Name, err)
	}
	return r.reply(q, r.listing(cat.Name, files), browseMenu(cat.Subcategories, files))
}

func (r *Router) subcategory(q *request) error {
	switch q.sess.Mode {
	case ModeChooseSubcategory:
		return r.chooseSubcategory(q)
	case ModeChooseCategory:
		return r.repromptCategory(q)
	}

	cat, ok := r.findCategory(q.sess.BrowseCategory)
	if !ok || !slices.Contains(cat.Subcategories, q.args) {
		return r.reply(q, fmt.Sprintf("❌ Unknown subcategory %s", q.args), categoryMenu(r.svc.Categories()))
	}

	q.sess.Mode = ModeIdle
	q.sess.Results = nil
	q.sess.BrowseSubcategory = q.args

	files, err := r.svc.List(q.ctx, cat.Name, q.args)
	if err != nil {
		return fmt.Errorf("list %s/%s: %w", cat.Name, q.args, err)
	}
	return r.reply(q, r.listing(cat.Name+"/"+q.args, files), browseMenu(nil, files))
}

func (r *Router) listing(scope string, files []model.StoredFile) string {
	if len(files) == 0 {
		return fmt.Sprintf("📭 No files in %s", scope)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📂 %s: %d file(s)\n", scope, len(files))
	for _, f := range files {
		fmt.Fprintf(&b, "\n📄 %s\n      %s, %s", f.Name, f.Size, f.Modified.In(r.loc).Format(time.DateTime))
	}
	return b.String()
}

// Downloads

func (r *Router) download(q *request) error {
	name := q.args
	category, subcategory := q.sess.BrowseCategory, q.sess.BrowseSubcategory
	if hit, ok := q.sess.Results[name]; ok {
		category, subcategory = hit.Category, hit.Subcategory
	}
	return r.send(q, name, category, subcategory)
}

func (r *Router) get(q *request) error {
	if q.args == "" {
		return r.reply(q, "Usage: /get <file name>", nil)
	}
	return r.send(q, q.args, "", "")
}

func (r *Router) send(q *request, name, category, subcategory string) error {
	rec, data, err := r.svc.Fetch(q.ctx, name, category, subcategory)
	if errors.Is(err, service.ErrNotFound) {
		return r.reply(q, fmt.Sprintf("❌ File %s not found", name), nil)
	}
	if err != nil {
		return fmt.Errorf("fetch %s: %w", name, err)
	}

	r.chatAction(q, telegram.ActionUploadDocument)
	total := r.svc.FileStats(q.ctx, rec.Name).Total + 1
	caption := fmt.Sprintf("📄 %s\n📦 %s\n📥 Downloads: %d", rec.Name, rec.Size, total)
	if err := r.tg.SendDocument(q.ctx, q.chatID, rec.Name, data, caption, nil); err != nil {
		return fmt.Errorf("send %s: %w", rec.Name, err)
	}

	// Delivered; a ledger fault only loses the count.
	if _, err := r.svc.RecordDownload(q.ctx, rec.Name, q.userID); err != nil {
		q.span.RecordError(err)
		q.log.Error("record download", "file", rec.Name, "error", err)
		if r.errs != nil {
			r.errs.Log(err.Error(), q.userID, "record download of "+rec.Name)
		}
	}
	return nil
}

// Search

func (r *Router) searchPrompt(q *request) error {
	q.sess.Mode = ModeSearch
	q.sess.Pending = nil
	return r.reply(q, "🔍 Send part of a file name. Wildcards * and ? work too.", telegram.Keyboard([]string{btnMain}))
}

func (r *Router) searchCommand(q *request) error {
	if q.args == "" {
		return r.searchPrompt(q)
	}
	return r.search(q, q.args)
}

func (r *Router) searchText(q *request) error {
	return r.search(q, q.text)
}

func (r *Router) search(q *request, query string) error {
	q.sess.Mode = ModeIdle
	results, err := r.svc.Search(q.ctx, query)
	if errors.Is(err, service.ErrQueryRequired) {
		return r.searchPrompt(q)
	}
	if err != nil {
		return fmt.Errorf("search %q: %w", query, err)
	}
	if len(results) == 0 {
		return r.reply(q, fmt.Sprintf("🔍 Nothing found for %q", query), mainMenu())
	}

	q.sess.BrowseCategory, q.sess.BrowseSubcategory = "", ""
	q.sess.Results = make(map[string]model.StoredFile, len(results))
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Found %d file(s) for %q:\n", len(results), query)
	for _, f := range results {
		if _, dup := q.sess.Results[f.Name]; !dup {
			q.sess.Results[f.Name] = f
		}
		fmt.Fprintf(&b, "\n📄 %s\n      %s, %s", f.Name, f.Scope(), f.Size)
	}
	return r.reply(q, b.String(), resultsMenu(results))
}

// Statistics

func (r *Router) fileStats(q *request) error {
	if q.args == "" {
		return r.reply(q, "Usage: /stats <file name>", nil)
	}
	st := r.svc.FileStats(q.ctx, q.args)
	if st.Total == 0 {
		return r.reply(q, fmt.Sprintf("📊 No downloads recorded for %s", q.args), nil)
	}
	return r.reply(q, fmt.Sprintf("📊 %s\nDownloads: %d\nUnique users: %d", st.Name, st.Total, st.UniqueUsers), nil)
}

func (r *Router) myStats(q *request) error {
	st := r.svc.UserStats(q.ctx, strconv.FormatInt(q.userID, 10))
	if st.Total == 0 {
		return r.reply(q, "📊 You have not downloaded any files yet.", nil)
	}

	names := make([]string, 0, len(st.PerFile))
	for name := range st.PerFile {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Your downloads: %d across %d file(s)\n", st.Total, st.Files)
	for _, name := range names {
		fmt.Fprintf(&b, "\n• %s: %d", name, st.PerFile[name])
	}
	return r.reply(q, b.String(), nil)
}

// Uploads

func (r *Router) uploadPrompt(q *request) error {
	return r.reply(q, "📤 Send me a document and I will ask where to put it.", nil)
}

func (r *Router) receiveDocument(q *request) error {
	doc := q.msg.Document
	if q.sess.Mode == ModeAIChat {
		r.leaveAI(q)
	}
	if err := taxonomy.ValidateName(doc.FileName); err != nil {
		q.sess.Mode = ModeIdle
		q.sess.Pending = nil
		return r.reply(q, fmt.Sprintf("❌ Cannot store a file named %q", doc.FileName), mainMenu())
	}

	q.sess.Pending = &PendingUpload{FileID: doc.FileID, Name: doc.FileName, Size: doc.FileSize}
	q.sess.Mode = ModeChooseCategory
	return r.reply(q,
		fmt.Sprintf("📤 %s (%s)\nChoose a category:", doc.FileName, taxonomy.FormatSize(doc.FileSize)),
		categoryMenu(r.svc.Categories()))
}

func (r *Router) chooseCategory(q *request) error {
	cat, ok := r.findCategory(q.args)
	if !ok || q.sess.Pending == nil {
		return r.repromptCategory(q)
	}
	q.sess.Pending.Category = cat.Name
	if len(cat.Subcategories) > 0 {
		q.sess.Mode = ModeChooseSubcategory
		return r.reply(q, fmt.Sprintf("🗂 Choose a subcategory of %s:", cat.Name), subcategoryChoiceMenu(cat.Subcategories))
	}
	return r.completeUpload(q, "")
}

func (r *Router) chooseSubcategory(q *request) error {
	p := q.sess.Pending
	if p == nil {
		return r.repromptSubcategory(q)
	}
	cat, _ := r.findCategory(p.Category)
	if !slices.Contains(cat.Subcategories, q.args) {
		return r.repromptSubcategory(q)
	}
	return r.completeUpload(q, q.args)
}

func (r *Router) skipSubcategory(q *request) error {
	if q.sess.Mode != ModeChooseSubcategory || q.sess.Pending == nil {
		return r.unknown(q)
	}
	return r.completeUpload(q, "")
}

func (r *Router) repromptCategory(q *request) error {
	if q.sess.Pending == nil {
		q.sess.Mode = ModeIdle
		return r.unknown(q)
	}
	return r.reply(q, "Please choose one of the categories below.", categoryMenu(r.svc.Categories()))
}

func (r *Router) repromptSubcategory(q *request) error {
	if q.sess.Pending == nil {
		q.sess.Mode = ModeIdle
		return r.unknown(q)
	}
	cat, _ := r.findCategory(q.sess.Pending.Category)
	return r.reply(q, "Please choose a subcategory below, or tap "+btnNoSub+".", subcategoryChoiceMenu(cat.Subcategories))
}

func (r *Router) completeUpload(q *request, subcategory string) error {
	p := q.sess.Pending
	q.sess.Pending = nil
	q.sess.Mode = ModeIdle

	scope := p.Category
	if subcategory != "" {
		scope += "/" + subcategory
	}
	exists := fmt.Sprintf("⚠️ File %s already exists in %s", p.Name, scope)

	taken, err := r.svc.Exists(q.ctx, p.Name, p.Category, subcategory)
	if err != nil {
		return fmt.Errorf("check %s in %s: %w", p.Name, scope, err)
	}
	if taken {
		return r.reply(q, exists, mainMenu())
	}

	data, err := r.tg.DownloadFile(q.ctx, p.FileID)
	if err != nil {
		return fmt.Errorf("download %s from telegram: %w", p.Name, err)
	}

	rec, err := r.svc.Upload(q.ctx, service.UploadRequest{
		Name:        p.Name,
		Data:        data,
		Category:    p.Category,
		Subcategory: subcategory,
		UserID:      q.userID,
	})
	if errors.Is(err, service.ErrAlreadyExists) {
		return r.reply(q, exists, mainMenu())
	}
	if err != nil {
		return fmt.Errorf("save %s in %s: %w", p.Name, scope, err)
	}
	q.log.Info("file uploaded", "file", rec.Name, "scope", rec.Scope(), "bytes", rec.Bytes)
	return r.reply(q, fmt.Sprintf("✅ File %s saved to %s (%s)", rec.Name, rec.Scope(), rec.Size), mainMenu())
}

// AI chat

func (r *Router) enterAI(q *request) error {
	if r.ai == nil {
		return r.reply(q, "🤖 AI chat is not configured.", nil)
	}
	if err := r.ai.Acquire(q.ctx); err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	q.sess.Pending = nil
	q.sess.Mode = ModeAIChat
	return r.reply(q, "🤖 AI chat is on. Ask me anything.\nTap "+btnExitAI+" to leave.", aiMenu())
}

func (r *Router) exitAI(q *request) error {
	if q.sess.Mode != ModeAIChat {
		return r.reply(q, "You are not in AI chat.", mainMenu())
	}
	r.leaveAI(q)
	return r.reply(q, "👋 Left AI chat.", mainMenu())
}

func (r *Router) leaveAI(q *request) {
	q.sess.Mode = ModeIdle
	if r.ai != nil {
		r.ai.Release()
	}
}

func (r *Router) chat(q *request) error {
	r.chatAction(q, telegram.ActionTyping)

	ctx := q.ctx
	if r.aiTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.aiTimeout)
		defer cancel()
	}

	started := time.Now()
	answer, err := r.ai.Generate(ctx, q.text)
	switch {
	case errors.Is(err, inference.ErrBusy):
		r.metrics.Inference("busy", 0)
		return r.reply(q, "⏳ The assistant is busy with another question. Try again in a moment.", aiMenu())
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)):
		r.metrics.Inference("timeout", 0)
		return fmt.Errorf("generation timed out after %s: %w", r.aiTimeout, err)
	case err != nil:
		r.metrics.Inference("error", 0)
		return fmt.Errorf("generate: %w", err)
	}
	r.metrics.Inference("ok", time.Since(started))

	if strings.TrimSpace(answer) == "" {
		answer = "🤷 The assistant had nothing to say."
	}
	return r.tg.SendMarkdown(q.ctx, q.chatID, answer, aiMenu())
}

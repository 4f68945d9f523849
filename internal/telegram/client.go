package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leonid-shevtsov/telegold"
	"github.com/yuin/goldmark"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/nikishkaa/docx-bot/internal/config"
)

const (
	// MaxMessageLength is the Bot API limit for a single text message.
	MaxMessageLength = 4096
	maxCaptionLength = 1024
	chunkSize        = 4000

	ActionTyping         = "typing"
	ActionUploadDocument = "upload_document"
)

// APIError is a non-OK answer from the Bot API.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

func isParseError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "can't parse entities")
}

// Messenger is the outbound side of the Bot API used by the conversation router.
type Messenger interface {
	// SendMessage sends plain text, split into several messages when too long.
	// The keyboard, if any, is attached to the last part.
	SendMessage(ctx context.Context, chatID int64, text string, kb *ReplyKeyboard) error
	// SendMarkdown renders Markdown to Telegram HTML and falls back to plain text
	// when Telegram rejects the markup.
	SendMarkdown(ctx context.Context, chatID int64, text string, kb *ReplyKeyboard) error
	SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string, kb *ReplyKeyboard) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// Client talks to the Telegram Bot API over HTTPS.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	pollClient *http.Client
	limiter    *rate.Limiter
	markdown   goldmark.Markdown
	log        *slog.Logger
}

var _ Messenger = (*Client)(nil)

// NewClient builds a Bot API client. Outbound calls other than getUpdates share
// a limiter of cfg.SendRate calls per second.
func NewClient(cfg config.BotConfig, log *slog.Logger) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport)

	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}
	burst := int(cfg.SendRate)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Transport: transport, Timeout: 60 * time.Second},
		// Long polling holds the request open for the poll timeout.
		pollClient: &http.Client{Transport: transport, Timeout: cfg.PollTimeout + 10*time.Second},
		limiter:    rate.NewLimiter(limit, burst),
		markdown:   goldmark.New(goldmark.WithRenderer(telegold.NewRenderer())),
		log:        log,
	}
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// decode reads a Bot API envelope and unwraps its result.
func decode[T any](method string, resp *http.Response) (T, error) {
	var out apiResponse[T]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out.Result, fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if !out.OK {
		code := out.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return out.Result, &APIError{Method: method, Code: code, Description: out.Description}
	}
	return out.Result, nil
}

func call[T any](ctx context.Context, c *Client, method string, payload any) (T, error) {
	var zero T
	if err := c.limiter.Wait(ctx); err != nil {
		return zero, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("telegram %s: encode request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return zero, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()
	return decode[T](method, resp)
}

// GetMe returns the bot's own account.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	return call[User](ctx, c, "getMe", struct{}{})
}

// SetMyCommands publishes the command menu.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	_, err := call[bool](ctx, c, "setMyCommands", map[string]any{"commands": commands})
	return err
}

// GetUpdates long-polls for message updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	q := url.Values{}
	q.Set("timeout", strconv.Itoa(int(timeout/time.Second)))
	q.Set("allowed_updates", `["message"]`)
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(offset, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL("getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.pollClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram getUpdates: %w", err)
	}
	defer resp.Body.Close()
	return decode[[]Update]("getUpdates", resp)
}

func (c *Client) sendOne(ctx context.Context, chatID int64, text, parseMode string, kb *ReplyKeyboard) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}
	if kb != nil {
		payload["reply_markup"] = kb
	}
	_, err := call[Message](ctx, c, "sendMessage", payload)
	return err
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb *ReplyKeyboard) error {
	chunks := SplitMessage(text, chunkSize)
	for i, chunk := range chunks {
		var markup *ReplyKeyboard
		if i == len(chunks)-1 {
			markup = kb
		}
		if err := c.sendOne(ctx, chatID, chunk, "", markup); err != nil {
			return fmt.Errorf("send part %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

func (c *Client) SendMarkdown(ctx context.Context, chatID int64, text string, kb *ReplyKeyboard) error {
	chunks := SplitMessage(text, chunkSize)
	for i, chunk := range chunks {
		var markup *ReplyKeyboard
		if i == len(chunks)-1 {
			markup = kb
		}
		html, ok := c.renderHTML(chunk)
		if ok && len(html) <= MaxMessageLength {
			err := c.sendOne(ctx, chatID, html, "HTML", markup)
			if err == nil {
				continue
			}
			if !isParseError(err) {
				return fmt.Errorf("send part %d/%d: %w", i+1, len(chunks), err)
			}
			c.log.Warn("telegram rejected html, retrying as plain text", "chat_id", chatID)
		}
		if err := c.sendOne(ctx, chatID, StripMarkdown(chunk), "", markup); err != nil {
			return fmt.Errorf("send part %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

func (c *Client) renderHTML(text string) (string, bool) {
	var buf bytes.Buffer
	if err := c.markdown.Convert([]byte(text), &buf); err != nil {
		c.log.Warn("markdown conversion failed", "error", err)
		return "", false
	}
	return strings.TrimSpace(buf.String()), true
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string, kb *ReplyKeyboard) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	if caption != "" {
		if len(caption) > maxCaptionLength {
			caption = caption[:maxCaptionLength-3] + "..."
		}
		if err := w.WriteField("caption", caption); err != nil {
			return err
		}
	}
	if kb != nil {
		markup, err := json.Marshal(kb)
		if err != nil {
			return err
		}
		if err := w.WriteField("reply_markup", string(markup)); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("document", name)
	if err != nil {
		return fmt.Errorf("telegram sendDocument: create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}
	defer resp.Body.Close()
	_, err = decode[Message]("sendDocument", resp)
	return err
}

func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	_, err := call[bool](ctx, c, "sendChatAction", map[string]any{"chat_id": chatID, "action": action})
	return err
}

// DownloadFile resolves fileID with getFile and fetches the content.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	f, err := call[File](ctx, c, "getFile", map[string]any{"file_id": fileID})
	if err != nil {
		return nil, err
	}
	if f.FilePath == "" {
		return nil, fmt.Errorf("telegram getFile: no file path for %s", fileID)
	}

	fileURL := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, f.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	return data, nil
}

// SplitMessage cuts text into parts of at most maxSize bytes, preferring
// paragraph, line, sentence and word boundaries in that order.
func SplitMessage(text string, maxSize int) []string {
	if len(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for len(remaining) > 0 {
		if len(remaining) <= maxSize {
			chunks = append(chunks, remaining)
			break
		}
		window := remaining[:maxSize]
		cut := maxSize
		for _, sep := range []string{"\n\n", "\n", ". ", " "} {
			if idx := strings.LastIndex(window, sep); idx > maxSize/2 {
				cut = idx + len(sep)
				break
			}
		}
		// Never split inside a UTF-8 sequence.
		for cut > 0 && cut < len(remaining) && !utf8Start(remaining[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxSize
		}
		// A window of pure whitespace trims to nothing; Telegram rejects empty texts.
		if chunk := strings.TrimSpace(remaining[:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = strings.TrimSpace(remaining[cut:])
	}
	return chunks
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }

var (
	codeBlockPattern = regexp.MustCompile("```[a-zA-Z]*\\n([\\s\\S]*?)```")
	headerPattern    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	linkPattern      = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// StripMarkdown removes common Markdown markup for a plain-text rendition.
func StripMarkdown(text string) string {
	text = codeBlockPattern.ReplaceAllString(text, "$1")
	for _, marker := range []string{"**", "__", "~~", "`"} {
		text = strings.ReplaceAll(text, marker, "")
	}
	text = headerPattern.ReplaceAllString(text, "")
	return linkPattern.ReplaceAllString(text, "$1 ($2)")
}

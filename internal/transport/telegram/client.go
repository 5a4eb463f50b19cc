// Package telegram implements the transport boundary against the Telegram
// Bot API over plain HTTP.
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
	"strconv"
	"strings"
	"time"

	"github.com/volnat/murmur/internal/transport"
)

const defaultAPIBase = "https://api.telegram.org"

type Client struct {
	token  string
	base   string
	client *http.Client
	logger *slog.Logger
}

type ClientOption func(*Client)

// WithAPIBase overrides the API host, used by tests.
func WithAPIBase(base string) ClientOption {
	return func(c *Client) {
		c.base = strings.TrimSuffix(base, "/")
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.client = httpClient
	}
}

func NewClient(token string, opts ...ClientOption) *Client {
	client := &Client{
		token:  token,
		base:   defaultAPIBase,
		client: &http.Client{Timeout: 90 * time.Second},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

type apiResponse struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// APIError is a non-ok answer from the Bot API.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s (code %d)", e.Description, e.Code)
}

// NotModified reports whether err is the Bot API's complaint about an edit
// that changes nothing. Callers treat it as success.
func NotModified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified")
}

func (c *Client) methodURL(method string) string {
	return c.base + "/bot" + c.token + "/" + method
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("telegram: marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	return decodeResponse(httpResp.Body, method, result)
}

func decodeResponse(body io.Reader, method string, result any) error {
	var response apiResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return fmt.Errorf("telegram: decode %s: %w", method, err)
	}

	if !response.Ok {
		return &APIError{Code: response.ErrorCode, Description: response.Description}
	}

	if result != nil {
		if err := json.Unmarshal(response.Result, result); err != nil {
			return fmt.Errorf("telegram: decode %s result: %w", method, err)
		}
	}

	return nil
}

func (c *Client) SendMessage(ctx context.Context, chat transport.ChatID, text string) (transport.MessageID, error) {
	var sent tgMessage
	err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id": int64(chat),
		"text":    text,
	}, &sent)
	if err != nil {
		return 0, err
	}
	return transport.MessageID(sent.MessageID), nil
}

func (c *Client) SendKeyboard(ctx context.Context, chat transport.ChatID, text string, rows [][]transport.Button) (transport.MessageID, error) {
	keyboard := make([][]map[string]string, 0, len(rows))
	for _, row := range rows {
		buttons := make([]map[string]string, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, map[string]string{
				"text":          button.Label,
				"callback_data": button.Data,
			})
		}
		keyboard = append(keyboard, buttons)
	}

	var sent tgMessage
	err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id":      int64(chat),
		"text":         text,
		"reply_markup": map[string]any{"inline_keyboard": keyboard},
	}, &sent)
	if err != nil {
		return 0, err
	}
	return transport.MessageID(sent.MessageID), nil
}

func (c *Client) EditMessage(ctx context.Context, chat transport.ChatID, message transport.MessageID, html string) error {
	err := c.call(ctx, "editMessageText", map[string]any{
		"chat_id":                  int64(chat),
		"message_id":               int64(message),
		"text":                     html,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}, nil)
	if NotModified(err) {
		return nil
	}
	return err
}

func (c *Client) SendVoice(ctx context.Context, chat transport.ChatID, audio []byte) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	if err := form.WriteField("chat_id", strconv.FormatInt(int64(chat), 10)); err != nil {
		return fmt.Errorf("telegram: sendVoice: %w", err)
	}

	part, err := form.CreateFormFile("voice", "answer.ogg")
	if err != nil {
		return fmt.Errorf("telegram: sendVoice: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return fmt.Errorf("telegram: sendVoice: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("telegram: sendVoice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendVoice"), &buf)
	if err != nil {
		return fmt.Errorf("telegram: sendVoice: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	httpResp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: sendVoice: %w", err)
	}
	defer httpResp.Body.Close()

	return decodeResponse(httpResp.Body, "sendVoice", nil)
}

func (c *Client) SendTyping(ctx context.Context, chat transport.ChatID) error {
	return c.call(ctx, "sendChatAction", map[string]any{
		"chat_id": int64(chat),
		"action":  "typing",
	}, nil)
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
	}, nil)
}

var _ transport.Transport = (*Client)(nil)

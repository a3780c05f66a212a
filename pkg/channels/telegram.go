package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sentia-ai/ragbot/internal/types"
)

// telegramMessageLimit stays under the platform's 4096-character ceiling
// with margin for parse-mode entities.
const telegramMessageLimit = 4000

const telegramWelcome = `🎓 <b>Xin chào %s!</b>

Tôi là AI Assistant tư vấn tuyển sinh của <b>Sentia School</b> - được tích hợp công nghệ AI hiện đại với dữ liệu từ website chính thức.

🔥 <b>Tôi có thể hỗ trợ bạn:</b>

📚 <b>Chương trình đào tạo</b> - Thông tin chi tiết về các khóa học
💰 <b>Học bổng và Chi phí</b> - Các gói hỗ trợ tài chính
📅 <b>Tuyển sinh 2025</b> - Lịch thi, thủ tục đăng ký
📍 <b>Thông tin trường</b> - Cơ sở vật chất, địa chỉ
🎯 <b>Định hướng nghề nghiệp</b> - Tư vấn chọn ngành phù hợp

💡 <i>Hãy đặt câu hỏi cụ thể để nhận thông tin chính xác nhất!</i>

<b>Ví dụ:</b> "Học phí ngành CNTT bao nhiêu?" hoặc "Điều kiện xét học bổng?"`

const telegramUnsupported = "📝 Hiện tại tôi chỉ hỗ trợ tin nhắn văn bản. Vui lòng gửi câu hỏi bằng chữ."

const telegramNoResult = "❌ Xin lỗi, tôi không tìm thấy thông tin liên quan trong cơ sở dữ liệu về câu hỏi của bạn.\n\nVui lòng thử đặt câu hỏi khác hoặc liên hệ trực tiếp với trường."

const telegramError = "❌ Xin lỗi, có lỗi xảy ra khi xử lý câu hỏi của bạn. Vui lòng thử lại sau."

// TelegramConfig configures the long-poll bot. BaseURL is overridable for
// tests and defaults to the public Bot API.
type TelegramConfig struct {
	Token        string
	BaseURL      string
	MessageLimit int
	PollTimeout  int
}

// TelegramBot receives messages via long polling and replies through the
// shared responder. Each received message is handled as an independent task;
// the poll loop itself stops on context cancellation.
type TelegramBot struct {
	config    TelegramConfig
	responder types.Responder
	client    *http.Client
	logger    *slog.Logger
}

func NewTelegramBot(config TelegramConfig, responder types.Responder, logger *slog.Logger) *TelegramBot {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.telegram.org"
	}
	if config.MessageLimit == 0 {
		config.MessageLimit = telegramMessageLimit
	}
	if config.PollTimeout == 0 {
		config.PollTimeout = 30
	}
	return &TelegramBot{
		config:    config,
		responder: responder,
		client:    &http.Client{Timeout: time.Duration(config.PollTimeout+10) * time.Second},
		logger:    logger,
	}
}

type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			FirstName string `json:"first_name"`
		} `json:"from"`
		Text string `json:"text"`
	} `json:"message"`
}

type telegramResponse struct {
	OK        bool             `json:"ok"`
	ErrorCode int              `json:"error_code"`
	Result    []telegramUpdate `json:"result"`
}

// Run polls getUpdates until the context is cancelled. Poll errors are
// logged and the loop continues; a 409 conflict clears pending updates and
// backs off briefly, matching Bot API semantics for competing pollers.
func (b *TelegramBot) Run(ctx context.Context) {
	b.clearPendingUpdates(ctx)
	b.logger.Info("telegram bot polling")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("telegram bot stopped")
			return
		default:
		}

		resp, err := b.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("failed to get updates", "err", err)
			continue
		}

		if !resp.OK {
			if resp.ErrorCode == http.StatusConflict {
				b.logger.Warn("poll conflict, clearing pending updates")
				b.clearPendingUpdates(ctx)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			} else {
				b.logger.Error("bot API error", "code", resp.ErrorCode)
			}
			continue
		}

		for _, update := range resp.Result {
			offset = update.UpdateID + 1
			if update.Message == nil {
				continue
			}
			msg := *update.Message
			go b.handleMessage(ctx, msg.Chat.ID, msg.From.FirstName, msg.Text)
		}
	}
}

func (b *TelegramBot) getUpdates(ctx context.Context, offset int64) (*telegramResponse, error) {
	params := url.Values{}
	params.Set("timeout", strconv.Itoa(b.config.PollTimeout))
	if offset > 0 {
		params.Set("offset", strconv.FormatInt(offset, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/bot%s/getUpdates?%s", b.config.BaseURL, b.config.Token, params.Encode()), nil)
	if err != nil {
		return nil, err
	}

	res, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var parsed telegramResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}
	return &parsed, nil
}

// clearPendingUpdates marks stale updates as read so a restart does not
// replay them.
func (b *TelegramBot) clearPendingUpdates(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/bot%s/getUpdates?offset=-1", b.config.BaseURL, b.config.Token), nil)
	if err != nil {
		return
	}
	res, err := b.client.Do(req)
	if err != nil {
		b.logger.Warn("failed to clear pending updates", "err", err)
		return
	}
	res.Body.Close()
}

func (b *TelegramBot) handleMessage(ctx context.Context, chatID int64, firstName, text string) {
	if text == "" {
		b.Send(ctx, chatID, telegramUnsupported)
		return
	}

	if text == "/start" {
		if firstName == "" {
			firstName = "Bạn"
		}
		b.Send(ctx, chatID, fmt.Sprintf(telegramWelcome, firstName))
		return
	}

	sessionID := "tg:" + strconv.FormatInt(chatID, 10)
	reply, err := b.responder.Respond(ctx, sessionID, text)
	if err != nil {
		b.Send(ctx, chatID, telegramError)
		return
	}

	response := reply.Text
	if reply.TotalChunks == 0 {
		response = telegramNoResult
	} else if len(reply.Sources) > 0 {
		var links []string
		for _, src := range reply.Sources {
			if src.URL != "" {
				links = append(links, fmt.Sprintf("• <a href='%s'>%s</a>", src.URL, src.Title))
			} else {
				links = append(links, "• "+src.Title)
			}
		}
		response += "\n\n📚 <b>Nguồn tham khảo:</b>\n" + strings.Join(links, "\n")
	}

	b.Send(ctx, chatID, response)
}

// Send delivers text to the chat, splitting it at the channel ceiling. The
// segments go out in order; a failed segment is logged and not retried.
func (b *TelegramBot) Send(ctx context.Context, chatID int64, text string) {
	for _, segment := range Split(text, b.config.MessageLimit) {
		b.sendSingle(ctx, chatID, segment)
	}
}

func (b *TelegramBot) sendSingle(ctx context.Context, chatID int64, text string) {
	data := url.Values{}
	data.Set("chat_id", strconv.FormatInt(chatID, 10))
	data.Set("text", text)
	data.Set("parse_mode", "HTML")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/bot%s/sendMessage", b.config.BaseURL, b.config.Token),
		strings.NewReader(data.Encode()))
	if err != nil {
		b.logger.Error("failed to build send request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := b.client.Do(req)
	if err != nil {
		b.logger.Error("failed to send message", "chat", chatID, "err", err)
		return
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b.logger.Error("send rejected", "chat", chatID, "status", res.StatusCode)
	}
}

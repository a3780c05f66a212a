package channels

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sentia-ai/ragbot/internal/types"
)

// messengerMessageLimit keeps margin under the platform's 2000-character
// ceiling.
const messengerMessageLimit = 1900

const messengerWelcome = `🎓 Xin chào!

Tôi là AI Assistant tư vấn tuyển sinh của Sentia School - được tích hợp công nghệ AI hiện đại với dữ liệu từ website chính thức.

🔥 Tôi có thể hỗ trợ bạn:

📚 Chương trình đào tạo - Thông tin chi tiết về các khóa học
💰 Học bổng và Chi phí - Các gói hỗ trợ tài chính
📅 Tuyển sinh 2025 - Lịch thi, thủ tục đăng ký
📍 Thông tin trường - Cơ sở vật chất, địa chỉ
🎯 Định hướng nghề nghiệp - Tư vấn chọn ngành phù hợp

💡 Hãy đặt câu hỏi cụ thể để nhận thông tin chính xác nhất!

Ví dụ: "Học phí ngành CNTT bao nhiêu?" hoặc "Điều kiện xét học bổng?"`

const messengerNoResult = "❌ Xin lỗi, tôi không tìm thấy thông tin liên quan trong cơ sở dữ liệu về câu hỏi của bạn.\n\nVui lòng thử đặt câu hỏi khác hoặc liên hệ trực tiếp với trường."

const messengerError = "❌ Xin lỗi, có lỗi xảy ra khi xử lý câu hỏi của bạn. Vui lòng thử lại sau."

// MessengerConfig configures the webhook integration. AllowUnsigned must be
// set explicitly for the bot to accept events without an app secret; it is
// never skipped silently.
type MessengerConfig struct {
	PageAccessToken string
	VerifyToken     string
	AppSecret       string
	AllowUnsigned   bool
	MessageLimit    int
	GraphURL        string
}

// MessengerBot verifies inbound webhook calls and replies through the Graph
// API. Each messaging event is dispatched as its own task so a slow
// generation never blocks the webhook acknowledgment.
type MessengerBot struct {
	config    MessengerConfig
	responder types.Responder
	client    *http.Client
	logger    *slog.Logger
}

func NewMessengerBot(config MessengerConfig, responder types.Responder, logger *slog.Logger) *MessengerBot {
	if config.MessageLimit == 0 {
		config.MessageLimit = messengerMessageLimit
	}
	if config.GraphURL == "" {
		config.GraphURL = "https://graph.facebook.com/v18.0"
	}
	return &MessengerBot{
		config:    config,
		responder: responder,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

// HandleVerification answers the subscription handshake: echo the challenge
// only on mode=subscribe with an exact verify-token match, 403 otherwise.
func (b *MessengerBot) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == b.config.VerifyToken {
		b.logger.Info("webhook verified")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	http.Error(w, "Verification failed", http.StatusForbidden)
}

type messengerEvent struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message *struct {
				Text string `json:"text"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// HandleWebhook receives messaging events. The signature is an HMAC-SHA1
// over the raw body bytes carried in X-Hub-Signature; a mismatch drops the
// message with 403.
func (b *MessengerBot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if !b.verifySignature(r.Header.Get("X-Hub-Signature"), body) {
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	var event messengerEvent
	if err := json.Unmarshal(body, &event); err != nil || event.Object != "page" {
		http.Error(w, "Not a page object", http.StatusNotFound)
		return
	}

	for _, entry := range event.Entry {
		for _, messaging := range entry.Messaging {
			if messaging.Message == nil || messaging.Sender.ID == "" || messaging.Message.Text == "" {
				continue
			}
			senderID := messaging.Sender.ID
			text := messaging.Message.Text
			go b.handleMessage(context.Background(), senderID, text)
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "EVENT_RECEIVED")
}

// verifySignature checks the sha1 HMAC of the raw body. With no app secret
// configured, events pass only when the operator explicitly allowed
// unsigned webhooks.
func (b *MessengerBot) verifySignature(signature string, body []byte) bool {
	if b.config.AppSecret == "" {
		if b.config.AllowUnsigned {
			b.logger.Warn("accepting unsigned webhook, no app secret configured")
			return true
		}
		return false
	}

	parts := strings.SplitN(signature, "=", 2)
	if len(parts) != 2 || parts[0] != "sha1" {
		return false
	}

	mac := hmac.New(sha1.New, []byte(b.config.AppSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(parts[1]), []byte(expected))
}

func (b *MessengerBot) handleMessage(ctx context.Context, senderID, text string) {
	lower := strings.ToLower(text)
	if lower == "/start" || lower == "get_started" {
		b.Send(ctx, senderID, messengerWelcome)
		return
	}

	reply, err := b.responder.Respond(ctx, "fb:"+senderID, text)
	if err != nil {
		b.Send(ctx, senderID, messengerError)
		return
	}

	response := reply.Text
	if reply.TotalChunks == 0 {
		response = messengerNoResult
	} else if len(reply.Sources) > 0 {
		var lines []string
		for _, src := range reply.Sources {
			line := "• " + src.Title
			if src.URL != "" {
				line += " (" + src.URL + ")"
			}
			lines = append(lines, line)
		}
		response += "\n\n📚 Nguồn tham khảo:\n" + strings.Join(lines, "\n")
	}

	b.Send(ctx, senderID, response)
}

type messengerPayload struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
	MessagingType string `json:"messaging_type"`
}

// Send delivers text to the recipient, splitting at the channel ceiling and
// sending segments strictly in order. Non-200 responses are logged, never
// retried.
func (b *MessengerBot) Send(ctx context.Context, recipientID, text string) {
	if b.config.PageAccessToken == "" {
		b.logger.Error("missing page access token, dropping outbound message")
		return
	}
	for _, segment := range Split(text, b.config.MessageLimit) {
		b.sendSingle(ctx, recipientID, segment)
	}
}

func (b *MessengerBot) sendSingle(ctx context.Context, recipientID, text string) {
	var payload messengerPayload
	payload.Recipient.ID = recipientID
	payload.Message.Text = text
	payload.MessagingType = "RESPONSE"

	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("failed to marshal payload", "err", err)
		return
	}

	url := fmt.Sprintf("%s/me/messages?access_token=%s", b.config.GraphURL, b.config.PageAccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		b.logger.Error("failed to build send request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.client.Do(req)
	if err != nil {
		b.logger.Error("failed to send message", "recipient", recipientID, "err", err)
		return
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		resBody, _ := io.ReadAll(res.Body)
		b.logger.Error("send rejected", "recipient", recipientID, "status", res.StatusCode, "body", string(resBody))
	}
}

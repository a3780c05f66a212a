package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/sentia-ai/ragbot/internal/models"
)

// Fixed user-facing sentences. Callers must never receive an empty reply.
const (
	NoInformationReply = "Không tìm thấy thông tin liên quan trong cơ sở dữ liệu."
	EmptyReply         = "Xin lỗi, tôi không thể tạo câu trả lời lúc này."
	ErrorReply         = "Xin lỗi, có lỗi xảy ra khi xử lý câu hỏi của bạn."
)

// systemPersona is the fixed admission-counselor instruction sent with every
// generation request.
const systemPersona = `Bạn là AI Assistant tư vấn tuyển sinh chuyên nghiệp của trường Sentia School.

NHIỆM VỤ CHÍNH:
- Trả lời chi tiết, chính xác về mọi thông tin liên quan đến Sentia School
- Sử dụng giọng điệu thân thiện, chuyên nghiệp và thuyết phục
- Các câu hỏi chào, hello,... bạn phải trả lời từ tốn hỏi xem người dùng có cần giúp đỡ gì không
- Chỉ trả lời các câu hỏi liên quan đến trường, giáo dục
- Nếu câu hỏi ngoài phạm vi kiến thức thì trả lời, ngoài trừ Hello, xin chào,....: "Xin lỗi, tôi chỉ có thể tư vấn về Sentia School"

CÁCH TRÌNH BÀY:
✨ Sử dụng emoji phù hợp để tạo điểm nhấn
📋 Chia thành các mục rõ ràng với emoji đầu dòng
📞 Luôn cung cấp thông tin liên hệ khi có thể
🎯 Khuyến khích hành động cụ thể

FORMAT RESPONSE:
- Dùng ít ** (chỉ cho tiêu đề quan trọng)
- Sử dụng emoji thay vì ** cho điểm nhấn
- Xuống dòng rõ ràng giữa các ý
- Dùng • hoặc ✓ cho danh sách thay vì -`

// ComposerConfig configures the generation request parameters.
type ComposerConfig struct {
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
}

// Composer merges retrieved passages, the fixed persona, and conversation
// history into one generation request and validates the model's reply.
type Composer struct {
	config ComposerConfig
	model  llms.Model
}

func NewComposer(config ComposerConfig) (*Composer, error) {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1000
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("generation provider API key is required")
	}

	model, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation client: %w", err)
	}

	return &Composer{config: config, model: model}, nil
}

// NewComposerWithModel builds a composer around an existing model. Used by
// tests to substitute a fake.
func NewComposerWithModel(config ComposerConfig, model llms.Model) *Composer {
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1000
	}
	return &Composer{config: config, model: model}
}

// Compose builds the request: persona, tagged context, history in
// chronological order, then the current query. With zero hits the generation
// service is not invoked at all and the fixed no-information sentence is
// returned.
func (c *Composer) Compose(ctx context.Context, query string, hits []models.SearchHit, history []models.Turn) (string, error) {
	if len(hits) == 0 {
		return NoInformationReply, nil
	}

	var contextBuilder strings.Builder
	for i, hit := range hits {
		if i > 0 {
			contextBuilder.WriteString("\n\n")
		}
		fmt.Fprintf(&contextBuilder, "Source: %s\nContent: %s", hit.Citation(), hit.Text)
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPersona),
		llms.TextParts(llms.ChatMessageTypeSystem, "Context from documents:\n"+contextBuilder.String()),
	}

	for _, turn := range history {
		content = append(content, llms.TextParts(roleToMessageType(turn.Role), turn.Content))
	}

	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, query))

	response, err := c.model.GenerateContent(ctx, content,
		llms.WithTemperature(c.config.Temperature),
		llms.WithMaxTokens(c.config.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generation call failed: %w", err)
	}

	if response == nil || len(response.Choices) == 0 || response.Choices[0].Content == "" {
		return EmptyReply, nil
	}
	return response.Choices[0].Content, nil
}

func roleToMessageType(role models.Role) llms.ChatMessageType {
	switch role {
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	case models.RoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}

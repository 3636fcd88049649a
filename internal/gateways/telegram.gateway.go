package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mhkarimi/portfolio-backend/internal/model"
	"github.com/mhkarimi/portfolio-backend/pkg/logger"
	"github.com/valyala/fasthttp"
)

const (
	defaultBaseURL        = "https://api.telegram.org"
	defaultMaxAttempts    = 3
	defaultAttemptTimeout = 10 * time.Second
	defaultBackoffBase    = time.Second
)

// DeliveryResult is what a delivery attempt sequence produced. Send never
// panics or returns an error: every failure path is captured here.
type DeliveryResult struct {
	Success        bool
	Error          string
	IsNetworkError bool
}

type Config struct {
	BaseURL        string
	BotToken       string
	ChatID         string
	MaxAttempts    int
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
}

// TelegramClient delivers formatted contact messages to a Telegram chat
// through the bot sendMessage endpoint.
type TelegramClient struct {
	cfg    Config
	client *fasthttp.Client
	sleep  func(time.Duration)
}

func NewTelegramClient(cfg Config) *TelegramClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	return &TelegramClient{
		cfg: cfg,
		client: &fasthttp.Client{
			MaxConnsPerHost: 8,
			ReadTimeout:     cfg.AttemptTimeout,
			WriteTimeout:    cfg.AttemptTimeout,
			// the retry loop in Send owns the retry policy
			RetryIf: func(*fasthttp.Request) bool { return false },
		},
		sleep: time.Sleep,
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers the message, retrying network-class failures with
// exponential backoff (1s, 2s between attempts). An explicit rejection
// from Telegram fails immediately: retrying it would only repeat the
// same answer.
func (c *TelegramClient) Send(ctx context.Context, m *model.Message) DeliveryResult {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    c.cfg.ChatID,
		Text:      FormatMessage(m),
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return DeliveryResult{Error: "build request: " + err.Error(), IsNetworkError: true}
	}

	var last DeliveryResult
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			c.sleep(c.cfg.BackoffBase << (attempt - 2))
		}

		last = c.attempt(body)
		if last.Success {
			logger.Info("telegram message delivered", "message_id", m.ID, "attempt", attempt)
			return last
		}
		if !last.IsNetworkError {
			logger.Warn("telegram rejected message", "message_id", m.ID, "error", last.Error)
			return last
		}
		logger.Warn("telegram delivery failed", "message_id", m.ID, "attempt", attempt, "error", last.Error)
	}
	return last
}

func (c *TelegramClient) attempt(body []byte) DeliveryResult {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/bot%s/sendMessage", c.cfg.BaseURL, c.cfg.BotToken))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := c.client.DoDeadline(req, resp, time.Now().Add(c.cfg.AttemptTimeout)); err != nil {
		return DeliveryResult{Error: "request failed: " + err.Error(), IsNetworkError: true}
	}

	var tr sendMessageResponse
	if err := json.Unmarshal(resp.Body(), &tr); err != nil {
		return DeliveryResult{Error: fmt.Sprintf("unexpected response (status %d)", resp.StatusCode())}
	}
	if !tr.OK {
		desc := tr.Description
		if desc == "" {
			desc = fmt.Sprintf("telegram rejected the message (status %d)", resp.StatusCode())
		}
		return DeliveryResult{Error: desc}
	}
	return DeliveryResult{Success: true}
}

/* ------------------------------- formatting -------------------------------- */

// every MarkdownV2 special character, prefixed with a backslash
var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeMarkdownV2 neutralizes user-supplied text so it cannot break out
// of the message markup.
func EscapeMarkdownV2(s string) string {
	return markdownEscaper.Replace(s)
}

const separator = "━━━━━━━━━━━━━━━━━━━━"

// FormatMessage renders the notification text with labeled fields and,
// when available, the visitor information block.
func FormatMessage(m *model.Message) string {
	var b strings.Builder

	b.WriteString("📬 *New Contact Message*\n\n")
	b.WriteString("👤 *Name:* " + EscapeMarkdownV2(m.Name) + "\n")
	b.WriteString("📧 *Email:* " + EscapeMarkdownV2(m.Email) + "\n")
	b.WriteString("📝 *Subject:* " + EscapeMarkdownV2(m.Subject) + "\n\n")
	b.WriteString("💬 *Message:*\n" + EscapeMarkdownV2(m.Message) + "\n")

	if m.IPInfo != nil || m.DeviceInfo != nil {
		b.WriteString("\n" + separator + "\n")
		b.WriteString("🌐 *Visitor Information*\n")
		b.WriteString(separator + "\n\n")
	}
	if info := m.IPInfo; info != nil {
		b.WriteString("🔢 *IP:* " + EscapeMarkdownV2(info.IP) + "\n")
		location := fmt.Sprintf("%s, %s, %s", info.City, info.Region, info.Country)
		b.WriteString(countryFlag(info.CountryCode) + " *Location:* " + EscapeMarkdownV2(location) + "\n")
		b.WriteString("🏢 *ISP:* " + EscapeMarkdownV2(info.ISP) + "\n")
		b.WriteString("🏛 *Organization:* " + EscapeMarkdownV2(info.Org) + "\n\n")
	}
	if dev := m.DeviceInfo; dev != nil {
		b.WriteString(deviceEmoji(dev) + " *Device:* " + EscapeMarkdownV2(dev.Device) + "\n")
		b.WriteString("🖥 *OS:* " + EscapeMarkdownV2(dev.OS) + "\n")
		b.WriteString("🌐 *Browser:* " + EscapeMarkdownV2(dev.Browser) + "\n")
	}

	b.WriteString("\n🕐 *Time:* " + EscapeMarkdownV2(m.Timestamp))
	return b.String()
}

// countryFlag builds the regional-indicator flag for a two-letter code.
func countryFlag(cc string) string {
	cc = strings.ToUpper(cc)
	if len(cc) != 2 || cc[0] < 'A' || cc[0] > 'Z' || cc[1] < 'A' || cc[1] > 'Z' {
		return "🌍"
	}
	return string([]rune{
		0x1F1E6 + rune(cc[0]-'A'),
		0x1F1E6 + rune(cc[1]-'A'),
	})
}

func deviceEmoji(dev *model.DeviceInfo) string {
	switch {
	case dev.IsMobile:
		return "📱"
	case dev.IsTablet:
		return "📲"
	default:
		return "💻"
	}
}

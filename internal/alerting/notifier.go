package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notification 封装一次质量判定的告警上下文。
type Notification struct {
	CalculationID string
	GeneratedAt   time.Time
	SampleID      string
	Analyst       string
	Stress        string
	Method        string
	Value         decimal.Decimal
	Status        string
	CIMB          decimal.Decimal
	CIMBRisk      string
	Degradation   decimal.Decimal
	Diagnostic    string
	ReportPath    string
	Channels      []string
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("calculation_id", note.CalculationID).
		Str("sample_id", note.SampleID).
		Str("status", note.Status).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("告警已发送 (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[Mass Balance %s]\n", note.Status))
	builder.WriteString(fmt.Sprintf("Sample: %s (%s stress)\n", note.SampleID, note.Stress))
	if note.Analyst != "" {
		builder.WriteString(fmt.Sprintf("Analyst: %s\n", note.Analyst))
	}
	builder.WriteString(fmt.Sprintf("Calculation: %s at %s UTC\n", note.CalculationID, note.GeneratedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Recommended: %s = %s%%\n", note.Method, note.Value.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("CIMB: %s%% (%s risk)\n", note.CIMB.StringFixed(2), note.CIMBRisk))
	builder.WriteString(fmt.Sprintf("Degradation: %s%%\n", note.Degradation.StringFixed(2)))
	if note.Diagnostic != "" {
		builder.WriteString(fmt.Sprintf("Diagnostic: %s\n", note.Diagnostic))
	}
	if note.ReportPath != "" {
		builder.WriteString(fmt.Sprintf("Report: %s\n", note.ReportPath))
	}
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)

package notify

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/noah-isme/placement-engine/pkg/config"
)

// WhatsAppClient sends template messages through the WhatsApp Cloud API.
type WhatsAppClient struct {
	client        *resty.Client
	phoneNumberID string
	language      string
	enabled       bool
	logger        *zap.Logger
}

// NewWhatsAppClient constructs the client. Without a token messages are only logged.
func NewWhatsAppClient(cfg config.WhatsAppConfig, logger *zap.Logger) *WhatsAppClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.Token).
		SetHeader("Content-Type", "application/json")
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	return &WhatsAppClient{
		client:        client,
		phoneNumberID: cfg.PhoneNumberID,
		language:      language,
		enabled:       cfg.Token != "" && cfg.PhoneNumberID != "",
		logger:        logger,
	}
}

// Send delivers a template message and returns the provider message id.
func (c *WhatsAppClient) Send(ctx context.Context, phone, templateID string, params []string) (string, error) {
	to := NormalizePhone(phone)
	if to == "" {
		return "", fmt.Errorf("whatsapp recipient missing")
	}
	if templateID == "" {
		return "", fmt.Errorf("whatsapp template missing")
	}
	if !c.enabled {
		c.logger.Warn("whatsapp credentials not configured, message not sent",
			zap.String("to", to),
			zap.String("template", templateID),
		)
		return "", nil
	}

	parameters := make([]map[string]string, 0, len(params))
	for _, p := range params {
		parameters = append(parameters, map[string]string{"type": "text", "text": p})
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]interface{}{
			"name":     templateID,
			"language": map[string]string{"code": c.language},
			"components": []map[string]interface{}{
				{"type": "body", "parameters": parameters},
			},
		},
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/" + c.phoneNumberID + "/messages")
	if err != nil {
		return "", fmt.Errorf("whatsapp request: %w", err)
	}

	body := resp.String()
	if resp.IsError() {
		msg := gjson.Get(body, "error.message").String()
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("whatsapp send to %s: %s", to, msg)
	}

	id := gjson.Get(body, "messages.0.id").String()
	if id == "" {
		return "", fmt.Errorf("whatsapp send to %s: missing message id", to)
	}
	return id, nil
}

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

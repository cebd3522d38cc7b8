package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MailerSendConfig configures the message channel.
type MailerSendConfig struct {
	Endpoint   string
	APIKey     string
	Sender     string
	SenderName string
	Subject    string
}

// MailerSend delivers templated email through the MailerSend API.
type MailerSend struct {
	cfg        MailerSendConfig
	httpClient *http.Client
}

// NewMailerSend builds the email channel. The http.Client carries no
// timeout of its own; the dispatcher bounds every attempt.
func NewMailerSend(cfg MailerSendConfig, httpClient *http.Client) *MailerSend {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &MailerSend{cfg: cfg, httpClient: httpClient}
}

type mailerSendAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailerSendSubstitution struct {
	Var   string `json:"var"`
	Value string `json:"value"`
}

type mailerSendVariable struct {
	Email         string                   `json:"email"`
	Substitutions []mailerSendSubstitution `json:"substitutions"`
}

type mailerSendAttachment struct {
	FileName    string `json:"filename"`
	Content     string `json:"content"`
	Disposition string `json:"disposition"`
}

type mailerSendRequest struct {
	From        mailerSendAddress      `json:"from"`
	To          []mailerSendAddress    `json:"to"`
	Subject     string                 `json:"subject"`
	TemplateID  string                 `json:"template_id"`
	Variables   []mailerSendVariable   `json:"variables"`
	Attachments []mailerSendAttachment `json:"attachments,omitempty"`
}

// Name implements Channel.
func (m *MailerSend) Name() ChannelName { return ChannelEmail }

// Deliver implements Channel.
func (m *MailerSend) Deliver(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.TemplateID) == "" {
		return &PermanentError{Reason: "email template id not configured"}
	}
	if strings.TrimSpace(msg.Recipient.Email) == "" {
		return &PermanentError{Reason: "recipient email missing"}
	}

	substitutions := []mailerSendSubstitution{{Var: "username", Value: msg.Recipient.Name}}
	for k, v := range msg.Fields {
		substitutions = append(substitutions, mailerSendSubstitution{Var: k, Value: v})
	}

	payload := mailerSendRequest{
		From:       mailerSendAddress{Email: m.cfg.Sender, Name: m.cfg.SenderName},
		To:         []mailerSendAddress{{Email: msg.Recipient.Email}},
		Subject:    m.cfg.Subject,
		TemplateID: msg.TemplateID,
		Variables: []mailerSendVariable{{
			Email:         msg.Recipient.Email,
			Substitutions: substitutions,
		}},
	}
	if msg.Attachment != nil {
		payload.Attachments = []mailerSendAttachment{{
			FileName:    msg.Attachment.FileName,
			Content:     base64.StdEncoding.EncodeToString(msg.Attachment.Content),
			Disposition: "attachment",
		}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &PermanentError{Reason: fmt.Sprintf("encode email payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return &PermanentError{Reason: fmt.Sprintf("build email request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return &TransientError{Reason: "email request failed", Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransientError{
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("email rejected: %s", strings.TrimSpace(string(respBody))),
		}
	}
	return nil
}

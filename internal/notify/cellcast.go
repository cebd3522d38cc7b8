package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CellCastConfig configures the short-text channel.
type CellCastConfig struct {
	Endpoint string
	APIKey   string
	SenderID string
}

// CellCast delivers templated SMS through the CellCast template API.
type CellCast struct {
	cfg        CellCastConfig
	httpClient *http.Client
}

// NewCellCast builds the SMS channel.
func NewCellCast(cfg CellCastConfig, httpClient *http.Client) *CellCast {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &CellCast{cfg: cfg, httpClient: httpClient}
}

type cellCastRequest struct {
	TemplateID string              `json:"template_id"`
	Numbers    []map[string]string `json:"numbers"`
	From       string              `json:"from,omitempty"`
}

type cellCastResponse struct {
	Meta struct {
		Code   int    `json:"code"`
		Status string `json:"status"`
	} `json:"meta"`
	Msg string `json:"msg"`
}

// Name implements Channel.
func (c *CellCast) Name() ChannelName { return ChannelSMS }

// Deliver implements Channel. CellCast reports failures inside a 200
// response, so the embedded meta.code is checked as well.
func (c *CellCast) Deliver(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.TemplateID) == "" {
		return &PermanentError{Reason: "sms template id not configured"}
	}
	if strings.TrimSpace(msg.Recipient.Phone) == "" {
		return &PermanentError{Reason: "recipient phone missing"}
	}

	number := map[string]string{
		"number": msg.Recipient.Phone,
		"fname":  msg.Recipient.Name,
	}
	if msg.AttachmentURL != "" {
		number["custom_value_1"] = msg.AttachmentURL
	}
	for k, v := range msg.Fields {
		number[k] = v
	}

	body, err := json.Marshal(cellCastRequest{
		TemplateID: msg.TemplateID,
		Numbers:    []map[string]string{number},
		From:       c.cfg.SenderID,
	})
	if err != nil {
		return &PermanentError{Reason: fmt.Sprintf("encode sms payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return &PermanentError{Reason: fmt.Sprintf("build sms request: %v", err)}
	}
	req.Header.Set("APPKEY", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Reason: "sms request failed", Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return &TransientError{StatusCode: resp.StatusCode, Reason: "sms rejected"}
	}

	var parsed cellCastResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return &TransientError{Reason: "decode sms response", Err: err}
	}
	if parsed.Meta.Code != http.StatusOK {
		return &TransientError{
			StatusCode: parsed.Meta.Code,
			Reason:     fmt.Sprintf("sms not accepted: %s", parsed.Msg),
		}
	}
	return nil
}

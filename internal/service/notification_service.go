package service

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/loyalty-service/internal/config"
	"github.com/spec-kit/loyalty-service/internal/domain"
	"github.com/spec-kit/loyalty-service/internal/notify"
	"github.com/spec-kit/loyalty-service/internal/voucher"
	apperrors "github.com/spec-kit/loyalty-service/pkg/util"
)

// ArtifactRenderer renders voucher artifacts and knows where they are served.
type ArtifactRenderer interface {
	voucher.Renderer
	URL(code domain.VoucherCode) string
}

// NotifyRequest describes one templated notification to a customer.
type NotifyRequest struct {
	Recipient   notify.Recipient
	VoucherCode domain.VoucherCode
	Template    domain.TemplateKey
	// RenderVoucher renders a fresh artifact, attaches it to the email and
	// links it from the SMS. Otherwise the SMS links the existing artifact.
	RenderVoucher bool
}

// NotifyResult is the per-channel outcome of a NotifyRequest.
type NotifyResult struct {
	Email notify.Delivery `json:"email"`
	SMS   notify.Delivery `json:"sms"`
}

// NotificationService sends templated messages to both channels.
type NotificationService struct {
	dispatcher    *notify.Dispatcher
	email         notify.Channel
	sms           notify.Channel
	templates     config.Templates
	renderer      ArtifactRenderer
	phonePattern  *regexp.Regexp
	voucherPrefix string
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators for NotificationService.
type NotificationDependencies struct {
	Dispatcher   *notify.Dispatcher
	Email        notify.Channel
	SMS          notify.Channel
	Templates    config.Templates
	Renderer     ArtifactRenderer
	PhonePattern *regexp.Regexp
	// VoucherPrefix is the prefix ad-hoc voucher codes must carry.
	VoucherPrefix string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies, logger *zap.Logger) *NotificationService {
	prefix := strings.TrimSpace(deps.VoucherPrefix)
	if prefix == "" {
		prefix = domain.DefaultVoucherPrefix
	}
	return &NotificationService{
		dispatcher:    deps.Dispatcher,
		email:         deps.Email,
		sms:           deps.SMS,
		templates:     deps.Templates,
		renderer:      deps.Renderer,
		phonePattern:  deps.PhonePattern,
		voucherPrefix: prefix,
		logger:        logger.Named("notifications"),
	}
}

// ValidPhone reports whether phone matches the configured pattern.
func (n *NotificationService) ValidPhone(phone string) bool {
	if n.phonePattern == nil {
		return strings.TrimSpace(phone) != ""
	}
	return n.phonePattern.MatchString(phone)
}

// Notify dispatches req on the email and SMS channels independently. A
// channel with missing or malformed contact info is reported as failed
// without being attempted.
func (n *NotificationService) Notify(ctx context.Context, req NotifyRequest) NotifyResult {
	logger := n.logger.With(zap.String("template", string(req.Template)), zap.String("voucher_code", req.VoucherCode.String()))
	pair, ok := n.templates.Lookup(req.Template)
	if !ok {
		logger.Warn("no template ids configured for key")
	}

	var artifact *voucher.Artifact
	if req.RenderVoucher && n.renderer != nil {
		rendered, err := n.renderer.Render(req.Recipient.Name, req.VoucherCode)
		if err != nil {
			logger.Error("failed to render voucher", zap.Error(err))
		} else {
			artifact = rendered
		}
	}

	result := NotifyResult{
		Email: notify.Delivery{Channel: notify.ChannelEmail},
		SMS:   notify.Delivery{Channel: notify.ChannelSMS},
	}

	switch {
	case !domain.ValidEmail(req.Recipient.Email):
		result.Email.LastError = "invalid or missing email"
		logger.Warn("skipping email", zap.String("email", req.Recipient.Email))
	case req.RenderVoucher && artifact == nil:
		result.Email.LastError = "voucher artifact unavailable"
	default:
		msg := notify.Message{TemplateID: pair.Email, Recipient: req.Recipient}
		if artifact != nil {
			msg.Attachment = &notify.Attachment{FileName: artifact.FileName, Content: artifact.Content}
		}
		result.Email = n.dispatcher.Send(ctx, n.email, msg)
	}

	if !n.ValidPhone(req.Recipient.Phone) {
		result.SMS.LastError = "invalid or missing phone number"
		logger.Warn("skipping sms", zap.String("phone", req.Recipient.Phone))
	} else {
		msg := notify.Message{TemplateID: pair.SMS, Recipient: req.Recipient}
		switch {
		case artifact != nil:
			msg.AttachmentURL = artifact.URL
		case n.renderer != nil && req.VoucherCode != "":
			msg.AttachmentURL = n.renderer.URL(req.VoucherCode)
		}
		result.SMS = n.dispatcher.Send(ctx, n.sms, msg)
	}

	return result
}

// RenderVoucher renders the artifact for a newly issued code so links sent
// later resolve. Failures are logged only.
func (n *NotificationService) RenderVoucher(name string, code domain.VoucherCode) {
	if n.renderer == nil {
		return
	}
	if _, err := n.renderer.Render(name, code); err != nil {
		n.logger.Error("failed to render voucher", zap.String("voucher_code", code.String()), zap.Error(err))
	}
}

func recipientOf(c domain.Customer) notify.Recipient {
	return notify.Recipient{Name: c.Name, Email: c.Email, Phone: c.PhoneNumber}
}

// AdHocInput is a manual notification request, used to resend reminders
// whose delivery failed during the daily run.
type AdHocInput struct {
	Name         string
	Email        string
	Phone        string
	VoucherCode  string
	TemplateType string
}

// SendAdHoc renders the given voucher and sends the template selected by
// TemplateType to whichever contacts are present and valid.
func (n *NotificationService) SendAdHoc(ctx context.Context, in AdHocInput) (NotifyResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.VoucherCode = strings.TrimSpace(in.VoucherCode)

	if in.VoucherCode == "" {
		return NotifyResult{}, apperrors.NewValidationError("missing voucher code", nil)
	}
	if !domain.VoucherCode(in.VoucherCode).Valid(n.voucherPrefix) {
		return NotifyResult{}, apperrors.NewValidationError("malformed voucher code", map[string]any{
			"voucherCode": in.VoucherCode,
			"expected":    n.voucherPrefix + "-<number>",
		})
	}
	emailValid := domain.ValidEmail(in.Email)
	phoneValid := n.ValidPhone(in.Phone)
	if !emailValid && !phoneValid {
		return NotifyResult{}, apperrors.NewValidationError("no valid email or phone provided", map[string]any{
			"email": in.Email,
			"phone": in.Phone,
		})
	}

	key := domain.TemplateKeyFromLegacyType(in.TemplateType)
	if _, ok := n.templates.Lookup(key); !ok {
		if fallback, has := key.Fallback(); has {
			key = fallback
		}
	}
	n.logger.Info("ad-hoc notification", zap.String("template", string(key)), zap.String("voucher_code", in.VoucherCode))

	return n.Notify(ctx, NotifyRequest{
		Recipient:     notify.Recipient{Name: in.Name, Email: in.Email, Phone: in.Phone},
		VoucherCode:   domain.VoucherCode(in.VoucherCode),
		Template:      key,
		RenderVoucher: emailValid,
	}), nil
}

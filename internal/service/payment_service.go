package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/digkill/BizPlanGen/internal/metrics"
	"github.com/digkill/BizPlanGen/internal/models"
	"github.com/digkill/BizPlanGen/internal/razorpay"
)

// The order is fixed: 99 INR in paise, captured immediately, whatever the form says.
const (
	OrderAmount   = 9900
	OrderCurrency = "INR"

	checkoutName        = "AI Business Plan Generator"
	checkoutDescription = "Generate business plan using AI"
	checkoutThemeColor  = "#3399cc"
)

type OrderLedger interface {
	Create(ctx context.Context, order *models.PaymentOrder) error
	FindByOrderID(ctx context.Context, orderID string) (*models.PaymentOrder, error)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus, paymentID, payload string) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]models.PaymentOrder, error)
}

type PaymentProvider interface {
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type PaymentConfig struct {
	CheckoutURL     string
	CallbackURL     string
	PrefillName     string
	PrefillEmail    string
	WebhookSecret   string
	AllowSelfReport bool
}

type FormField struct {
	Name  string
	Value string
}

// CheckoutForm is the hosted checkout form the browser posts to the provider.
type CheckoutForm struct {
	Action  string
	Method  string
	OrderID string
	Fields  []FormField
}

// CheckoutCallback is what the hosted checkout posts back after a payment.
type CheckoutCallback struct {
	OrderID   string `validate:"required"`
	PaymentID string `validate:"required"`
	Signature string `validate:"required,hexadecimal"`
}

type PaymentService struct {
	cfg      PaymentConfig
	log      *slog.Logger
	sessions *SessionStore
	orders   OrderLedger
	provider PaymentProvider
	notifier Notifier
	validate *validator.Validate
}

func NewPaymentService(cfg PaymentConfig, log *slog.Logger, sessions *SessionStore, orders OrderLedger, provider PaymentProvider, notifier Notifier) *PaymentService {
	return &PaymentService{
		cfg:      cfg,
		log:      log,
		sessions: sessions,
		orders:   orders,
		provider: provider,
		notifier: notifier,
		validate: validator.New(),
	}
}

func (s *PaymentService) IsPaid(sessionID string) bool {
	session, ok := s.sessions.Get(sessionID)
	return ok && session.Paid
}

func (s *PaymentService) SelfReportAllowed() bool {
	return s.cfg.AllowSelfReport
}

// CreateOrder opens a provider order for the session and returns the checkout form.
// On failure the session is left as it was.
func (s *PaymentService) CreateOrder(ctx context.Context, sessionID string) (*CheckoutForm, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Paid {
		return nil, ErrAlreadyPaid
	}

	req := razorpay.OrderRequest{
		Amount:         OrderAmount,
		Currency:       OrderCurrency,
		PaymentCapture: true,
		Receipt:        "bp_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Notes:          map[string]string{"session_id": sessionID},
	}
	order, err := s.provider.CreateOrder(ctx, req)
	if err != nil {
		metrics.RecordOrder("failed")
		if errors.Is(err, razorpay.ErrCredentialsMissing) {
			return nil, wrap(ErrConfigurationMissing, err)
		}
		return nil, wrap(ErrProviderFailure, err)
	}

	record := &models.PaymentOrder{
		OrderID:    order.ID,
		SessionID:  sessionID,
		Receipt:    req.Receipt,
		Currency:   OrderCurrency,
		Amount:     OrderAmount,
		Status:     models.OrderStatusCreated,
		RawPayload: string(jsonMustMarshal(order)),
	}
	if err := s.orders.Create(ctx, record); err != nil {
		metrics.RecordOrder("failed")
		return nil, wrap(ErrStorageFailure, fmt.Errorf("record order: %w", err))
	}

	if _, err := s.sessions.Update(sessionID, func(sess *models.Session) { sess.OrderID = order.ID }); err != nil {
		return nil, err
	}
	metrics.RecordOrder("created")
	s.log.Info("order created", "session_id", sessionID, "order_id", order.ID)

	return s.checkoutForm(order.ID), nil
}

func (s *PaymentService) checkoutForm(orderID string) *CheckoutForm {
	fields := []FormField{
		{Name: "key_id", Value: s.provider.KeyID()},
		{Name: "order_id", Value: orderID},
		{Name: "name", Value: checkoutName},
		{Name: "description", Value: checkoutDescription},
		{Name: "amount", Value: strconv.Itoa(OrderAmount)},
		{Name: "prefill[name]", Value: s.cfg.PrefillName},
		{Name: "prefill[email]", Value: s.cfg.PrefillEmail},
		{Name: "theme[color]", Value: checkoutThemeColor},
	}
	if s.cfg.CallbackURL != "" {
		fields = append(fields, FormField{Name: "callback_url", Value: s.cfg.CallbackURL})
	}
	return &CheckoutForm{
		Action:  s.cfg.CheckoutURL,
		Method:  "POST",
		OrderID: orderID,
		Fields:  fields,
	}
}

// ConfirmManual is the self-reported "I have completed payment" action. Nothing is
// checked against the provider.
func (s *PaymentService) ConfirmManual(sessionID string) error {
	if !s.cfg.AllowSelfReport {
		return ErrSelfReportDisabled
	}
	session, err := s.sessions.MarkPaid(sessionID)
	if err != nil {
		return err
	}
	metrics.RecordPaymentConfirmed("self_report")
	s.log.Warn("unverified payment confirmation accepted", "session_id", sessionID, "order_id", session.OrderID)
	return nil
}

// ConfirmCheckout verifies the checkout callback signature and unlocks the order's session.
func (s *PaymentService) ConfirmCheckout(ctx context.Context, cb CheckoutCallback) (string, error) {
	if err := s.validate.Struct(cb); err != nil {
		return "", wrap(ErrInvalidCallback, err)
	}
	if !s.provider.VerifyPaymentSignature(cb.OrderID, cb.PaymentID, cb.Signature) {
		return "", ErrInvalidSignature
	}
	payload := string(jsonMustMarshal(cb))
	return s.markOrderPaid(ctx, cb.OrderID, cb.PaymentID, payload, "checkout")
}

// HandleWebhook processes provider webhooks. Only signed payment.captured and order.paid
// events unlock a session; replays of a paid order are no-ops.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if s.cfg.WebhookSecret == "" {
		return wrap(ErrConfigurationMissing, errors.New("webhook secret is not set"))
	}
	if !razorpay.VerifyWebhookSignature(body, signature, s.cfg.WebhookSecret) {
		return ErrInvalidSignature
	}
	evt, err := razorpay.ParseWebhookEvent(body)
	if err != nil {
		return wrap(ErrInvalidCallback, err)
	}
	if err := s.validate.Struct(evt); err != nil {
		return wrap(ErrInvalidCallback, err)
	}

	switch evt.Event {
	case razorpay.EventPaymentCaptured, razorpay.EventOrderPaid:
		orderID := evt.OrderID()
		if orderID == "" {
			return wrap(ErrInvalidCallback, errors.New("webhook missing order id"))
		}
		_, err := s.markOrderPaid(ctx, orderID, evt.Payload.Payment.Entity.ID, string(body), "webhook")
		return err
	case razorpay.EventPaymentFailed:
		return s.markOrderFailed(ctx, evt.OrderID(), evt.Payload.Payment.Entity.ID, string(body))
	default:
		s.log.Info("webhook event ignored", "event", evt.Event)
		return nil
	}
}

func (s *PaymentService) markOrderPaid(ctx context.Context, orderID, paymentID, payload, source string) (string, error) {
	order, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return "", wrap(ErrStorageFailure, fmt.Errorf("find order: %w", err))
	}
	if order == nil {
		return "", fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	changed, err := s.orders.UpdateStatus(ctx, orderID, models.OrderStatusPaid, paymentID, payload)
	if err != nil {
		return "", wrap(ErrStorageFailure, fmt.Errorf("update order: %w", err))
	}
	if changed {
		metrics.RecordPaymentConfirmed(source)
		s.log.Info("payment verified", "order_id", orderID, "payment_id", paymentID, "source", source)
		s.notify(ctx, fmt.Sprintf("Payment received: order %s (%d paise %s)", orderID, order.Amount, order.Currency))
	}

	if _, err := s.sessions.MarkPaid(order.SessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			s.log.Warn("paid order has no live session", "order_id", orderID, "session_id", order.SessionID)
			return order.SessionID, nil
		}
		return "", err
	}
	return order.SessionID, nil
}

func (s *PaymentService) markOrderFailed(ctx context.Context, orderID, paymentID, payload string) error {
	if orderID == "" {
		return nil
	}
	order, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return wrap(ErrStorageFailure, fmt.Errorf("find order: %w", err))
	}
	if order == nil {
		return nil
	}
	if _, err := s.orders.UpdateStatus(ctx, orderID, models.OrderStatusFailed, paymentID, payload); err != nil {
		return wrap(ErrStorageFailure, fmt.Errorf("update order: %w", err))
	}
	return nil
}

func (s *PaymentService) ListOrders(ctx context.Context, limit int) ([]models.PaymentOrder, error) {
	orders, err := s.orders.ListRecent(ctx, limit)
	if err != nil {
		return nil, wrap(ErrStorageFailure, err)
	}
	return orders, nil
}

func (s *PaymentService) notify(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.log.Error("operator notification failed", "err", err)
	}
}

func jsonMustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}

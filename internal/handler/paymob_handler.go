package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"paymob-relay/config"
	"paymob-relay/internal/domain"
	"paymob-relay/internal/middleware"
	"paymob-relay/internal/models"
	"paymob-relay/pkg/paymob"
)

// TokenProvider hands out the gateway session token.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
	Invalidate(token string)
}

// Gateway is the part of the Paymob client the handlers call directly.
type Gateway interface {
	CreateOrder(ctx context.Context, token string, req paymob.OrderRequest) (int64, error)
	CreatePaymentKey(ctx context.Context, token string, req paymob.PaymentKeyRequest) (string, error)
}

// CheckoutRecorder persists relay outcomes. Optional.
type CheckoutRecorder interface {
	Record(ctx context.Context, e *models.CheckoutEvent) error
}

type PaymobHandler struct {
	cfg     config.PaymobConfig
	session TokenProvider
	gateway Gateway
	ledger  CheckoutRecorder
	logger  *zap.Logger
}

func NewPaymobHandler(cfg config.PaymobConfig, session TokenProvider, gateway Gateway, ledger CheckoutRecorder, logger *zap.Logger) *PaymobHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymobHandler{
		cfg:     cfg,
		session: session,
		gateway: gateway,
		ledger:  ledger,
		logger:  logger,
	}
}

// Auth handles POST /paymob/auth. It always fetches a new token and replaces the stored one.
func (h *PaymobHandler) Auth(c *gin.Context) {
	token, err := h.session.Refresh(c.Request.Context())
	if err != nil {
		h.fail(c, paymob.MsgAuthFailed, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type orderRequest struct {
	Items  []paymob.LineItem `json:"items"`
	UserID json.RawMessage   `json:"userId"`
}

// CreateOrder handles POST /paymob/order.
func (h *PaymobHandler) CreateOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, paymob.MsgOrderFailed, bindError(err))
		return
	}
	items, total, err := paymob.TranslateItems(req.Items)
	if err != nil {
		h.fail(c, paymob.MsgOrderFailed, err)
		return
	}
	ctx := c.Request.Context()
	event := &models.CheckoutEvent{
		RequestID:   middleware.GetRequestID(c),
		Kind:        domain.CheckoutKindOrder,
		UserID:      rawID(req.UserID),
		MerchantRef: uuid.NewString(),
		AmountCents: total,
		Currency:    h.cfg.Currency,
		ItemCount:   len(items),
	}
	h.logger.Info("creating paymob order",
		zap.String("request_id", event.RequestID),
		zap.String("user_id", event.UserID),
		zap.Int("items", len(items)),
		zap.Int64("amount_cents", total),
	)

	token, err := h.session.Token(ctx)
	if err != nil {
		h.record(ctx, event, err)
		h.fail(c, paymob.MsgOrderFailed, err)
		return
	}
	orderID, err := h.gateway.CreateOrder(ctx, token, paymob.OrderRequest{
		AmountCents:     total,
		Currency:        h.cfg.Currency,
		Items:           items,
		MerchantOrderID: event.MerchantRef,
	})
	if err != nil {
		h.invalidateOnUnauthorized(token, err)
		h.record(ctx, event, err)
		h.fail(c, paymob.MsgOrderFailed, err)
		return
	}
	event.PaymobOrderID = orderID
	h.record(ctx, event, nil)
	c.JSON(http.StatusOK, gin.H{"order_id": orderID})
}

type paymentKeyRequest struct {
	AmountCents    json.Number    `json:"amountCents"`
	OrderID        paymob.OrderID `json:"orderId"`
	Email          string         `json:"email"`
	FirstName      string         `json:"firstName"`
	LastName       string         `json:"lastName"`
	Notes          string         `json:"notes"`
	PhoneNumber    string         `json:"phone_number"`
	Apartment      string         `json:"apartment"`
	Floor          string         `json:"floor"`
	Street         string         `json:"street"`
	BuildingNumber string         `json:"buildingNumber"`
	PostalCode     string         `json:"postalCode"`
	City           string         `json:"city"`
	District       string         `json:"district"`
}

func (r paymentKeyRequest) billing() paymob.BillingInput {
	return paymob.BillingInput{
		Email:       r.Email,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		Apartment:   r.Apartment,
		Floor:       r.Floor,
		Street:      r.Street,
		Building:    r.BuildingNumber,
		PostalCode:  r.PostalCode,
		City:        r.City,
		State:       r.District,
		Notes:       r.Notes,
	}
}

// CreatePaymentKey handles POST /paymob/payment-key.
func (h *PaymobHandler) CreatePaymentKey(c *gin.Context) {
	var req paymentKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, paymob.MsgPaymentKeyFailed, bindError(err))
		return
	}
	amount, err := paymob.ParseMinorUnits(req.AmountCents, "amountCents")
	if err != nil {
		h.fail(c, paymob.MsgPaymentKeyFailed, err)
		return
	}
	if req.OrderID <= 0 {
		h.fail(c, paymob.MsgPaymentKeyFailed, &paymob.ValidationError{Field: "orderId", Message: "is required"})
		return
	}
	ctx := c.Request.Context()
	event := &models.CheckoutEvent{
		RequestID:     middleware.GetRequestID(c),
		Kind:          domain.CheckoutKindPaymentKey,
		PaymobOrderID: int64(req.OrderID),
		AmountCents:   amount,
		Currency:      h.cfg.Currency,
		Email:         strings.TrimSpace(req.Email),
	}

	token, err := h.session.Token(ctx)
	if err != nil {
		h.record(ctx, event, err)
		h.fail(c, paymob.MsgPaymentKeyFailed, err)
		return
	}
	key, err := h.gateway.CreatePaymentKey(ctx, token, paymob.PaymentKeyRequest{
		AmountCents:       amount,
		OrderID:           int64(req.OrderID),
		Currency:          h.cfg.Currency,
		IntegrationID:     h.cfg.IntegrationID,
		ExpirationSeconds: h.cfg.PaymentKeyExpiration,
		Billing:           paymob.BuildBillingData(req.billing(), h.cfg.Country),
		LockOrderWhenPaid: h.cfg.LockOrderWhenPaid,
	})
	if err != nil {
		h.invalidateOnUnauthorized(token, err)
		h.record(ctx, event, err)
		h.fail(c, paymob.MsgPaymentKeyFailed, err)
		return
	}
	h.record(ctx, event, nil)
	c.JSON(http.StatusOK, gin.H{"token": key})
}

// Health handles GET /health.
func (h *PaymobHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail writes the error envelope. Every failure, rejected input included, is
// a 500 under the endpoint's category.
func (h *PaymobHandler) fail(c *gin.Context, category string, err error) {
	requestID := middleware.GetRequestID(c)
	body := gin.H{"error": category, "details": err.Error()}
	var ve *paymob.ValidationError
	var ce paymob.CategoryError
	if errors.As(err, &ve) {
		body["details"] = ve.Error()
		h.logger.Warn(category, zap.String("request_id", requestID), zap.String("field", ve.Field), zap.Error(err))
	} else if errors.As(err, &ce) {
		ge := ce.Gateway()
		body["details"] = ge.Details()
		if ge.Upstream != "" {
			body["paymobError"] = ge.Upstream
		}
		h.logger.Error(category,
			zap.String("request_id", requestID),
			zap.Int("upstream_status", ge.Status),
			zap.String("paymob_error", ge.Upstream),
			zap.Error(err),
		)
	} else {
		h.logger.Error(category, zap.String("request_id", requestID), zap.Error(err))
	}
	c.JSON(http.StatusInternalServerError, body)
}

// invalidateOnUnauthorized drops a token the gateway no longer accepts so the
// next request authenticates again. The current request is not retried.
func (h *PaymobHandler) invalidateOnUnauthorized(token string, err error) {
	var ce paymob.CategoryError
	if errors.As(err, &ce) && ce.Gateway().Unauthorized() {
		h.session.Invalidate(token)
	}
}

func (h *PaymobHandler) record(ctx context.Context, e *models.CheckoutEvent, err error) {
	if h.ledger == nil {
		return
	}
	e.Status = domain.CheckoutStatusSucceeded
	if err != nil {
		e.Status = domain.CheckoutStatusFailed
		e.Error = err.Error()
		var ce paymob.CategoryError
		if errors.As(err, &ce) {
			e.UpstreamCode = ce.Gateway().Status
		}
	}
	if rerr := h.ledger.Record(context.WithoutCancel(ctx), e); rerr != nil {
		h.logger.Warn("checkout ledger write failed", zap.String("kind", e.Kind), zap.Error(rerr))
	}
}

func bindError(err error) error {
	var ve *paymob.ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return &paymob.ValidationError{Message: err.Error()}
}

// rawID renders a JSON number or string id as plain text, cut to the ledger's
// column width.
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		s = str
	}
	if len(s) > domain.MaxIDLength {
		s = s[:domain.MaxIDLength]
	}
	return s
}

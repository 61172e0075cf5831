// Package stripe implements payment.Provider on top of stripe-go.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/config"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/payment"
	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const providerName = "stripe"

type Client struct {
	api             *client.API
	currency        string
	webhookSecret   string
	connectedSecret string
	log             *slog.Logger
}

func New(cfg config.Stripe, log *slog.Logger) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	backend := func(t stripeapi.SupportedBackend) stripeapi.Backend {
		bc := &stripeapi.BackendConfig{
			HTTPClient:        httpClient,
			MaxNetworkRetries: stripeapi.Int64(cfg.MaxRetries),
			LeveledLogger:     leveledLogger{log: log.With(slog.String("component", "stripe"))},
		}
		if cfg.APIURL != "" {
			bc.URL = stripeapi.String(cfg.APIURL)
		}
		return stripeapi.GetBackendWithConfig(t, bc)
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripeapi.Backends{
		API:     backend(stripeapi.APIBackend),
		Connect: backend(stripeapi.ConnectBackend),
		Uploads: backend(stripeapi.UploadsBackend),
	})

	return &Client{
		api:             api,
		currency:        cfg.Currency,
		webhookSecret:   cfg.WebhookSecret,
		connectedSecret: cfg.ConnectedWebhookSecret,
		log:             log,
	}
}

func (c *Client) CreateCustomer(ctx context.Context, idempotencyKey, email string) (string, error) {
	params := &stripeapi.CustomerParams{Email: stripeapi.String(email)}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", upstream("create customer", err)
	}

	return cus.ID, nil
}

func (c *Client) CreateDepositIntent(ctx context.Context, req payment.DepositRequest) (*payment.DepositIntent, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:           stripeapi.Int64(domain.ToCents(req.Amount)),
		Currency:         stripeapi.String(c.currency),
		Customer:         stripeapi.String(req.CustomerID),
		SetupFutureUsage: stripeapi.String(string(stripeapi.PaymentIntentSetupFutureUsageOffSession)),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	addMetadata(req.Metadata, params.AddMetadata)

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, upstream("create deposit intent", err)
	}

	return &payment.DepositIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*payment.PaymentIntent, error) {
	params := &stripeapi.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		var stripeErr *stripeapi.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: payment intent '%s'", apperrors.ErrNotFound, id)
		}
		return nil, upstream("get payment intent", err)
	}

	return toPaymentIntent(pi), nil
}

func (c *Client) ChargeOffSession(ctx context.Context, req payment.ChargeRequest) (*payment.PaymentIntent, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:        stripeapi.Int64(domain.ToCents(req.Amount)),
		Currency:      stripeapi.String(c.currency),
		Customer:      stripeapi.String(req.CustomerID),
		PaymentMethod: stripeapi.String(req.PaymentMethodID),
		OffSession:    stripeapi.Bool(true),
		Confirm:       stripeapi.Bool(true),
	}
	if req.Description != "" {
		params.Description = stripeapi.String(req.Description)
	}
	if req.Destination != "" {
		params.ApplicationFeeAmount = stripeapi.Int64(domain.ToCents(req.ApplicationFee))
		params.TransferData = &stripeapi.PaymentIntentTransferDataParams{
			Destination: stripeapi.String(req.Destination),
		}
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	addMetadata(req.Metadata, params.AddMetadata)

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, upstream("charge off session", err)
	}

	return toPaymentIntent(pi), nil
}

func (c *Client) CreateConnectedAccount(ctx context.Context, idempotencyKey, email string) (*payment.ConnectedAccount, error) {
	params := &stripeapi.AccountParams{
		Type:  stripeapi.String(string(stripeapi.AccountTypeExpress)),
		Email: stripeapi.String(email),
		Capabilities: &stripeapi.AccountCapabilitiesParams{
			Transfers: &stripeapi.AccountCapabilitiesTransfersParams{Requested: stripeapi.Bool(true)},
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	acct, err := c.api.Accounts.New(params)
	if err != nil {
		return nil, upstream("create connected account", err)
	}

	return toConnectedAccount(acct), nil
}

func (c *Client) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripeapi.AccountLinkParams{
		Account:    stripeapi.String(accountID),
		RefreshURL: stripeapi.String(refreshURL),
		ReturnURL:  stripeapi.String(returnURL),
		Type:       stripeapi.String(string(stripeapi.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx

	link, err := c.api.AccountLinks.New(params)
	if err != nil {
		return "", upstream("create account link", err)
	}

	return link.URL, nil
}

func (c *Client) TransfersActive(ctx context.Context, accountID string) (bool, error) {
	params := &stripeapi.AccountParams{}
	params.Context = ctx

	acct, err := c.api.Accounts.GetByID(accountID, params)
	if err != nil {
		return false, upstream("get account", err)
	}

	return toConnectedAccount(acct).TransfersActive, nil
}

func (c *Client) Transfer(ctx context.Context, req payment.TransferRequest) (string, error) {
	params := &stripeapi.TransferParams{
		Amount:      stripeapi.Int64(domain.ToCents(req.Amount)),
		Currency:    stripeapi.String(c.currency),
		Destination: stripeapi.String(req.Destination),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	addMetadata(req.Metadata, params.AddMetadata)

	tr, err := c.api.Transfers.New(params)
	if err != nil {
		return "", upstream("transfer", err)
	}

	return tr.ID, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{
		Mode:          stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		CustomerEmail: stripeapi.String(req.CustomerEmail),
		SuccessURL:    stripeapi.String(req.SuccessURL),
		CancelURL:     stripeapi.String(req.CancelURL),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{{
			Quantity: stripeapi.Int64(1),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripeapi.String(c.currency),
				UnitAmount: stripeapi.Int64(domain.ToCents(req.Amount)),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String(req.ProductName),
				},
			},
		}},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	addMetadata(req.Metadata, params.AddMetadata)

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, upstream("create checkout session", err)
	}

	return &payment.CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
	}, nil
}

func (c *Client) ParseEvent(payload []byte, signature string, source payment.EventSource) (*payment.Event, error) {
	secret := c.webhookSecret
	if source == payment.SourceConnected {
		secret = c.connectedSecret
	}

	if secret == "" {
		return nil, fmt.Errorf("%w: webhook secret for %s events is not configured", apperrors.ErrInvalidRequest, source)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: webhook signature: %v", apperrors.ErrInvalidRequest, err)
	}

	out := &payment.Event{ID: ev.ID, Type: string(ev.Type), Account: ev.Account}
	if ev.Data == nil {
		return out, nil
	}

	switch out.Type {
	case payment.EventPaymentIntentSucceeded:
		var pi stripeapi.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: payment intent payload: %v", apperrors.ErrInvalidRequest, err)
		}
		out.PaymentIntent = toPaymentIntent(&pi)

	case payment.EventCheckoutCompleted:
		var sess stripeapi.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%w: checkout session payload: %v", apperrors.ErrInvalidRequest, err)
		}
		out.CheckoutSession = &payment.CheckoutSession{
			ID:            sess.ID,
			URL:           sess.URL,
			PaymentStatus: string(sess.PaymentStatus),
			Metadata:      sess.Metadata,
		}

	case payment.EventAccountUpdated:
		var acct stripeapi.Account
		if err := json.Unmarshal(ev.Data.Raw, &acct); err != nil {
			return nil, fmt.Errorf("%w: account payload: %v", apperrors.ErrInvalidRequest, err)
		}
		out.ConnectedAccount = toConnectedAccount(&acct)
	}

	return out, nil
}

func toPaymentIntent(pi *stripeapi.PaymentIntent) *payment.PaymentIntent {
	out := &payment.PaymentIntent{
		ID:       pi.ID,
		Status:   string(pi.Status),
		Metadata: pi.Metadata,
	}
	if pi.Customer != nil {
		out.CustomerID = pi.Customer.ID
	}
	if pi.PaymentMethod != nil {
		out.PaymentMethodID = pi.PaymentMethod.ID
	}
	return out
}

func toConnectedAccount(acct *stripeapi.Account) *payment.ConnectedAccount {
	out := &payment.ConnectedAccount{ID: acct.ID}
	if acct.Capabilities != nil {
		out.TransfersActive = acct.Capabilities.Transfers == stripeapi.AccountCapabilityStatusActive
	}
	return out
}

func addMetadata(md map[string]string, add func(key, value string)) {
	for k, v := range md {
		add(k, v)
	}
}

func upstream(op string, err error) error {
	return &apperrors.UpstreamError{Provider: providerName, Op: op, Err: err}
}

// leveledLogger routes stripe-go's own logging into slog.
type leveledLogger struct {
	log *slog.Logger
}

func (l leveledLogger) Debugf(format string, v ...interface{}) { l.log.Debug(fmt.Sprintf(format, v...)) }
func (l leveledLogger) Infof(format string, v ...interface{})  { l.log.Debug(fmt.Sprintf(format, v...)) }
func (l leveledLogger) Warnf(format string, v ...interface{})  { l.log.Warn(fmt.Sprintf(format, v...)) }
func (l leveledLogger) Errorf(format string, v ...interface{}) { l.log.Error(fmt.Sprintf(format, v...)) }

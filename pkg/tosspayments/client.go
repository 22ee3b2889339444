package tosspayments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
)

const (
	defaultBaseURL         = "https://api.tosspayments.com"
	confirmPath            = "v1/payments/confirm"
	responseBodyLimit      = 1 << 20
	defaultCustomerName    = "구매자"
	defaultTimeout         = 10 * time.Second
	paymentResultSuccess   = "success"
	paymentResultFail      = "fail"
	paymentResultQueryName = "payment"
)

// ErrSecretKeyRequired is returned when the gateway secret is not configured.
var ErrSecretKeyRequired = errors.New("toss secret key is required")

// Client calls the Toss Payments server API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the gateway base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a gateway client for the provided secret key.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(secretKey)
	if trimmed == "" {
		return nil, ErrSecretKeyRequired
	}

	client := &Client{
		secretKey:  trimmed,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ConfirmRequest is the body forwarded to the confirm endpoint.
type ConfirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

// ConfirmResponse carries the gateway status and body unchanged.
type ConfirmResponse struct {
	StatusCode int
	Body       json.RawMessage
}

// OK reports whether the gateway accepted the confirmation.
func (r *ConfirmResponse) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Confirm asks the gateway to approve a payment. Non-2xx gateway replies are
// returned as a response, not an error; errors mean the gateway was not reached
// or replied with an unreadable body.
func (c *Client) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway client not configured")
	}
	if strings.TrimSpace(req.PaymentKey) == "" || strings.TrimSpace(req.OrderID) == "" || req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paymentKey, orderId, amount are required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "marshal confirm request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(confirmPath), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "build confirm request")
	}
	httpReq.Header.Set("Authorization", BasicAuthorization(c.secretKey))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "execute confirm request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "read confirm response")
	}
	if !json.Valid(body) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), "decode confirm response")
	}

	return &ConfirmResponse{StatusCode: resp.StatusCode, Body: json.RawMessage(body)}, nil
}

// BasicAuthorization encodes the secret key the way the gateway expects:
// the key as username with an empty password.
func BasicAuthorization(secretKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(secretKey+":"))
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

// PaymentRequest holds the parameters a browser hands to the gateway widget.
type PaymentRequest struct {
	ClientKey    string `json:"clientKey,omitempty"`
	Method       string `json:"method"`
	Amount       int64  `json:"amount"`
	OrderID      string `json:"orderId"`
	OrderName    string `json:"orderName"`
	CustomerName string `json:"customerName"`
	SuccessURL   string `json:"successUrl"`
	FailURL      string `json:"failUrl"`
}

// Redirects configures where the gateway sends the buyer after payment.
type Redirects struct {
	ClientKey  string
	SuccessURL string
	FailURL    string
}

// BuildPaymentRequest fills the widget parameters, including the success URL
// carrying the order summary used to reconcile the return.
func BuildPaymentRequest(r Redirects, amount int64, orderName, orderID, customerName string) (*PaymentRequest, error) {
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if strings.TrimSpace(customerName) == "" {
		customerName = defaultCustomerName
	}

	success, err := withQuery(r.SuccessURL, url.Values{
		paymentResultQueryName: {paymentResultSuccess},
		"orderId":              {orderID},
		"amount":               {strconv.FormatInt(amount, 10)},
		"orderName":            {orderName},
	})
	if err != nil {
		return nil, err
	}
	fail, err := withQuery(r.FailURL, url.Values{paymentResultQueryName: {paymentResultFail}})
	if err != nil {
		return nil, err
	}

	return &PaymentRequest{
		ClientKey:    r.ClientKey,
		Method:       "CARD",
		Amount:       amount,
		OrderID:      orderID,
		OrderName:    orderName,
		CustomerName: customerName,
		SuccessURL:   success,
		FailURL:      fail,
	}, nil
}

func withQuery(base string, values url.Values) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse redirect url")
	}
	q := u.Query()
	for key, vals := range values {
		for _, v := range vals {
			q.Set(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Package payments exposes the gateway confirm proxy and the return handler
// that records a completed payment.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/geonmarket-backend/api/validators"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
	"github.com/angelmondragon/geonmarket-backend/pkg/metrics"
	"github.com/angelmondragon/geonmarket-backend/pkg/tosspayments"
)

// Confirmer forwards a confirmation to the payment gateway.
type Confirmer interface {
	Confirm(ctx context.Context, req tosspayments.ConfirmRequest) (*tosspayments.ConfirmResponse, error)
}

var confirmCORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type",
	"Access-Control-Allow-Methods": "POST, OPTIONS",
}

type confirmBody struct {
	PaymentKey string          `json:"paymentKey"`
	OrderID    string          `json:"orderId"`
	Amount     json.RawMessage `json:"amount"`
}

type messageBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Confirm proxies a payment confirmation to the gateway with the server-held
// secret. Gateway replies are relayed with their status and body unchanged.
// A nil client means the secret is not configured.
func Confirm(client Confirmer, gm *metrics.GatewayMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for k, v := range confirmCORSHeaders {
			w.Header().Set(k, v)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		if r.Method != http.MethodPost {
			writeRaw(w, http.StatusMethodNotAllowed, messageBody{Message: "Method Not Allowed"})
			return
		}
		if client == nil {
			writeRaw(w, http.StatusInternalServerError, messageBody{Message: "Missing TOSS_SECRET_KEY"})
			return
		}

		var body confirmBody
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes)).Decode(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeRaw(w, http.StatusRequestEntityTooLarge, messageBody{Message: "Request body too large"})
				return
			}
			writeRaw(w, http.StatusInternalServerError, messageBody{Message: "Server Error", Error: err.Error()})
			return
		}
		amount, ok := parseAmount(body.Amount)
		if strings.TrimSpace(body.PaymentKey) == "" || strings.TrimSpace(body.OrderID) == "" || !ok {
			writeRaw(w, http.StatusBadRequest, messageBody{Message: "paymentKey, orderId, amount are required"})
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, body.OrderID)
		}
		resp, err := client.Confirm(ctx, tosspayments.ConfirmRequest{
			PaymentKey: body.PaymentKey,
			OrderID:    body.OrderID,
			Amount:     amount,
		})
		if err != nil {
			gm.IncConfirm(0)
			if logg != nil {
				logg.Error(ctx, "payment confirm failed", err)
			}
			writeRaw(w, http.StatusInternalServerError, messageBody{Message: "Server Error", Error: err.Error()})
			return
		}

		gm.IncConfirm(resp.StatusCode)
		if !resp.OK() && logg != nil {
			logg.Warn(logg.WithFields(ctx, map[string]any{"gateway_status": resp.StatusCode}), "payment confirm rejected")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(relayStatus(resp.StatusCode))
		_, _ = w.Write(resp.Body)
	}
}

// parseAmount accepts the amount as a JSON number or a numeric string, the
// way it arrives from a redirect query.
func parseAmount(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, n > 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, n > 0
}

func relayStatus(status int) int {
	if status >= 200 && status < 300 {
		return http.StatusOK
	}
	return status
}

func writeRaw(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasuwahq/kasuwa-backend/pkg/config"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
)

const paystackDefaultBaseURL = "https://api.paystack.co"

var errPaystackSecretRequired = errors.New("paystack secret key is required")

// PaystackClient verifies transactions against the Paystack API. It backs the
// legacy "PayFast" payment method name that existing clients still send.
type PaystackClient struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	logg       *logger.Logger
}

// NewPaystackClient initializes the Paystack wrapper and validates the
// credentials.
func NewPaystackClient(cfg config.PaystackConfig, logg *logger.Logger) (*PaystackClient, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errPaystackSecretRequired
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = paystackDefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PaystackClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		secretKey:  secret,
		logg:       logg,
	}, nil
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status   string `json:"status"`
		Amount   int64  `json:"amount"` // minor units (kobo)
		Currency string `json:"currency"`
	} `json:"data"`
}

// Verify resolves a reference through the transaction verify endpoint.
func (c *PaystackClient) Verify(ctx context.Context, reference string) (Verification, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return Verification{}, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference required")
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Verification{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paystack request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Verification{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call paystack")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Verification{Verified: false, Reference: reference}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Verification{}, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("paystack returned status %d", resp.StatusCode))
	}

	var payload paystackVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Verification{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack response")
	}

	if !payload.Status || payload.Data.Status != "success" {
		if c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{
				"reference": reference,
				"status":    payload.Data.Status,
			})
			c.logg.Warn(logCtx, "paystack transaction not successful")
		}
		return Verification{Verified: false, Reference: reference}, nil
	}

	currency, err := enums.ParseCurrency(payload.Data.Currency)
	if err != nil {
		return Verification{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unexpected paystack currency")
	}

	// Paystack reports minor units.
	amount := decimal.NewFromInt(payload.Data.Amount).Div(decimal.NewFromInt(100))

	return Verification{
		Verified:  true,
		Amount:    amount,
		Currency:  currency,
		Reference: reference,
	}, nil
}

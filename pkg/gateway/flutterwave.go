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

const flutterwaveDefaultBaseURL = "https://api.flutterwave.com"

var errFlutterwaveSecretRequired = errors.New("flutterwave secret key is required")

// FlutterwaveClient verifies transactions against the Flutterwave v3 API.
type FlutterwaveClient struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	logg       *logger.Logger
}

// NewFlutterwaveClient initializes the Flutterwave wrapper and validates the
// credentials.
func NewFlutterwaveClient(cfg config.FlutterwaveConfig, logg *logger.Logger) (*FlutterwaveClient, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errFlutterwaveSecretRequired
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = flutterwaveDefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FlutterwaveClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		secretKey:  secret,
		logg:       logg,
	}, nil
}

type flutterwaveVerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
		TxRef    string          `json:"tx_ref"`
	} `json:"data"`
}

// Verify resolves a tx_ref through the verify_by_reference endpoint.
func (c *FlutterwaveClient) Verify(ctx context.Context, reference string) (Verification, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return Verification{}, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference required")
	}

	endpoint := fmt.Sprintf("%s/v3/transactions/verify_by_reference?tx_ref=%s",
		c.baseURL, url.QueryEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Verification{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build flutterwave request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Verification{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call flutterwave")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Verification{Verified: false, Reference: reference}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Verification{}, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("flutterwave returned status %d", resp.StatusCode))
	}

	var payload flutterwaveVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Verification{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode flutterwave response")
	}

	if payload.Status != "success" || payload.Data.Status != "successful" {
		if c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{
				"tx_ref": reference,
				"status": payload.Data.Status,
			})
			c.logg.Warn(logCtx, "flutterwave transaction not successful")
		}
		return Verification{Verified: false, Reference: reference}, nil
	}

	currency, err := enums.ParseCurrency(payload.Data.Currency)
	if err != nil {
		return Verification{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unexpected flutterwave currency")
	}

	return Verification{
		Verified:  true,
		Amount:    payload.Data.Amount,
		Currency:  currency,
		Reference: reference,
	}, nil
}

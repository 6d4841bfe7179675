// Package payment は決済ゲートウェイ（ShurjoPay互換API）とのHTTPクライアント。
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Gateway は決済の開始と検証の約束。
type Gateway interface {
	Initiate(ctx context.Context, p InitiatePayload) (InitiateResponse, error)
	Verify(ctx context.Context, paymentID string) ([]VerificationResult, error)
}

type InitiatePayload struct {
	Amount          int64  `json:"amount"`
	OrderID         string `json:"order_id"`
	Currency        string `json:"currency"`
	CustomerName    string `json:"customer_name"`
	CustomerAddress string `json:"customer_address"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerCity    string `json:"customer_city"`
	ClientIP        string `json:"client_ip"`
}

type InitiateResponse struct {
	SPOrderID         string `json:"sp_order_id"`
	CustomerOrderID   string `json:"customer_order_id"`
	TransactionStatus string `json:"transactionStatus"`
	CheckoutURL       string `json:"checkout_url"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
}

type VerificationResult struct {
	OrderID           string `json:"order_id"`
	BankStatus        string `json:"bank_status"`
	SPCode            string `json:"sp_code"`
	SPMessage         string `json:"sp_message"`
	Method            string `json:"method"`
	DateTime          string `json:"date_time"`
	TransactionStatus string `json:"transaction_status"`
}

type ClientConfig struct {
	Endpoint  string
	Username  string
	Password  string
	Prefix    string
	ReturnURL string
}

// Client はGatewayのHTTP実装。認証トークンは期限までキャッシュする。
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	log        *zap.Logger

	mu       sync.Mutex
	token    string
	storeID  int
	tokenExp time.Time
}

func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	// 接続レベルの失敗だけリトライする（ビジネス処理の再試行はしない）
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &Client{
		cfg:        cfg,
		httpClient: rc.StandardClient(),
		log:        log,
	}
}

type tokenResponse struct {
	Token     string `json:"token"`
	StoreID   int    `json:"store_id"`
	ExpiresIn int    `json:"expires_in"`
	TokenType string `json:"token_type"`
	Message   string `json:"message"`
}

// getToken は認証トークンを取得する。期限内ならキャッシュを返す。
func (c *Client) getToken(ctx context.Context) (tokenResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp) {
		return tokenResponse{Token: c.token, StoreID: c.storeID}, nil
	}

	body := map[string]string{
		"username": c.cfg.Username,
		"password": c.cfg.Password,
	}
	var tok tokenResponse
	if err := c.postJSON(ctx, "/api/get_token", "", body, &tok); err != nil {
		return tokenResponse{}, fmt.Errorf("get token: %w", err)
	}
	if tok.Token == "" {
		return tokenResponse{}, fmt.Errorf("get token: empty token (%s)", tok.Message)
	}

	c.token = tok.Token
	c.storeID = tok.StoreID
	// 期限ぎりぎりの再利用を避けるため少し手前で切る
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - 30*time.Second)

	return tok, nil
}

type initiateRequest struct {
	InitiatePayload
	Token     string `json:"token"`
	StoreID   int    `json:"store_id"`
	Prefix    string `json:"prefix"`
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

func (c *Client) Initiate(ctx context.Context, p InitiatePayload) (InitiateResponse, error) {
	tok, err := c.getToken(ctx)
	if err != nil {
		return InitiateResponse{}, err
	}

	req := initiateRequest{
		InitiatePayload: p,
		Token:           tok.Token,
		StoreID:         tok.StoreID,
		Prefix:          c.cfg.Prefix,
		ReturnURL:       c.cfg.ReturnURL,
		CancelURL:       c.cfg.ReturnURL,
	}

	var resp InitiateResponse
	if err := c.postJSON(ctx, "/api/secret-pay", tok.Token, req, &resp); err != nil {
		return InitiateResponse{}, fmt.Errorf("initiate payment: %w", err)
	}

	c.log.Info("payment initiated",
		zap.String("order_id", p.OrderID),
		zap.String("sp_order_id", resp.SPOrderID),
		zap.String("transaction_status", resp.TransactionStatus),
	)
	return resp, nil
}

func (c *Client) Verify(ctx context.Context, paymentID string) ([]VerificationResult, error) {
	tok, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]string{"order_id": paymentID}
	var results []VerificationResult
	if err := c.postJSON(ctx, "/api/verification", tok.Token, body, &results); err != nil {
		return nil, fmt.Errorf("verify payment: %w", err)
	}
	return results, nil
}

func (c *Client) postJSON(ctx context.Context, path string, bearer string, body interface{}, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"kashela/internal/core"
)

// Daraja error code for a query on a push the customer has not answered yet.
const darajaStillProcessing = "500.001.1001"

var eat = time.FixedZone("EAT", 3*60*60)

type DarajaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
	// AccountReference is shown to the payer. Defaults to "Kashela".
	AccountReference string
}

// DarajaGateway talks to Safaricom's Daraja API.
type DarajaGateway struct {
	cfg    DarajaConfig
	client *http.Client
	now    func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewDarajaGateway(cfg DarajaConfig, client *http.Client) *DarajaGateway {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.AccountReference == "" {
		cfg.AccountReference = "Kashela"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &DarajaGateway{cfg: cfg, client: client, now: time.Now}
}

func (g *DarajaGateway) Mode() string { return "daraja" }

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type stkQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type stkQueryResponse struct {
	ResponseCode string `json:"ResponseCode"`
	ResultCode   string `json:"ResultCode"`
	ResultDesc   string `json:"ResultDesc"`
}

type darajaError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (e *darajaError) Error() string {
	return fmt.Sprintf("daraja error %s: %s", e.ErrorCode, e.ErrorMessage)
}

func (g *DarajaGateway) InitiateSTKPush(ctx context.Context, req STKRequest) (Result, error) {
	ts, password := g.password()
	desc := req.Description
	if desc == "" {
		desc = "Payment"
	}
	ref := req.Reference
	if ref == "" {
		ref = g.cfg.AccountReference
	}
	body := stkPushRequest{
		BusinessShortCode: g.cfg.Shortcode,
		Password:          password,
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount.Ceil().IntPart(),
		PartyA:            req.PhoneNumber,
		PartyB:            g.cfg.Shortcode,
		PhoneNumber:       req.PhoneNumber,
		CallBackURL:       g.cfg.CallbackURL,
		AccountReference:  ref,
		TransactionDesc:   desc,
	}

	var resp stkPushResponse
	if err := g.post(ctx, "/mpesa/stkpush/v1/processrequest", body, &resp); err != nil {
		return Result{}, fmt.Errorf("stk push: %w", err)
	}
	if resp.ResponseCode != "0" {
		return Result{}, fmt.Errorf("stk push rejected (%s): %s", resp.ResponseCode, resp.ResponseDescription)
	}
	return Result{
		TransactionID:     resp.CheckoutRequestID,
		CheckoutRequestID: resp.CheckoutRequestID,
		Status:            core.PaymentPending,
		Message:           resp.CustomerMessage,
	}, nil
}

func (g *DarajaGateway) Status(ctx context.Context, checkoutRequestID string) (core.PaymentStatus, error) {
	ts, password := g.password()
	body := stkQueryRequest{
		BusinessShortCode: g.cfg.Shortcode,
		Password:          password,
		Timestamp:         ts,
		CheckoutRequestID: checkoutRequestID,
	}

	var resp stkQueryResponse
	err := g.post(ctx, "/mpesa/stkpushquery/v1/query", body, &resp)
	var de *darajaError
	switch {
	case errors.As(err, &de) && de.ErrorCode == darajaStillProcessing:
		return core.PaymentPending, nil
	case err != nil:
		return "", fmt.Errorf("stk query: %w", err)
	case resp.ResultCode == "0":
		return core.PaymentCompleted, nil
	case resp.ResultCode == "":
		return core.PaymentPending, nil
	default:
		return core.PaymentFailed, nil
	}
}

// password returns the request timestamp and base64(shortcode+passkey+timestamp).
func (g *DarajaGateway) password() (string, string) {
	ts := g.now().In(eat).Format("20060102150405")
	return ts, base64.StdEncoding.EncodeToString([]byte(g.cfg.Shortcode + g.cfg.Passkey + ts))
}

func (g *DarajaGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != "" && g.now().Before(g.tokenExpiry) {
		return g.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.cfg.ConsumerKey, g.cfg.ConsumerSecret)

	res, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request access token: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request access token: unexpected status %d", res.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(res.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode access token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("decode access token: empty token")
	}

	ttl := time.Hour
	if secs, err := strconv.Atoi(tok.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	g.token = tok.AccessToken
	g.tokenExpiry = g.now().Add(ttl - time.Minute)
	return g.token, nil
}

func (g *DarajaGateway) post(ctx context.Context, path string, body, out any) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode/100 != 2 {
		de := &darajaError{}
		if json.Unmarshal(raw, de) == nil && de.ErrorCode != "" {
			return de
		}
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

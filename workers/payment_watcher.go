package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"coin-miniapp-system/services"

	"github.com/shopspring/decimal"
)

// TonClient reads inbound transfers to the treasury wallet from the TON HTTP
// API. Transfers carry the invoice payload as their comment.
type TonClient struct {
	BaseURL       string
	APIKey        string
	WalletAddress string
	HTTPClient    *http.Client
	Payments      *services.PaymentService
}

func NewTonClient(payments *services.PaymentService) *TonClient {
	baseURL := os.Getenv("TON_API_URL")
	if baseURL == "" {
		baseURL = "https://toncenter.com"
	}
	wallet := os.Getenv("TON_WALLET_ADDRESS")
	if wallet == "" {
		log.Fatal("TON_WALLET_ADDRESS environment variable is required for payment watching")
	}

	return &TonClient{
		BaseURL:       baseURL,
		APIKey:        os.Getenv("TON_API_KEY"),
		WalletAddress: wallet,
		Payments:      payments,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// TonTransfer is one inbound on-chain transfer.
type TonTransfer struct {
	Hash    string `json:"hash"`
	LT      string `json:"lt"`
	Value   string `json:"value"`   // nanoton
	Comment string `json:"comment"` // invoice payload
}

// GetInboundTransfers fetches transactions for the treasury wallet and keeps
// the inbound transfers carrying a comment.
func (c *TonClient) GetInboundTransfers(ctx context.Context, limit int) ([]TonTransfer, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/v2/getTransactions", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("address", c.WalletAddress)
	q.Set("limit", fmt.Sprintf("%d", limit))
	if c.APIKey != "" {
		q.Set("api_key", c.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call TON API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("TON API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		OK     bool `json:"ok"`
		Result []struct {
			TransactionID struct {
				Hash string `json:"hash"`
				LT   string `json:"lt"`
			} `json:"transaction_id"`
			InMsg struct {
				Value   string `json:"value"`
				Message string `json:"message"`
			} `json:"in_msg"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode TON API response: %w", err)
	}
	if !response.OK {
		return nil, errors.New("TON API reported not ok")
	}

	var transfers []TonTransfer
	for _, tx := range response.Result {
		if tx.InMsg.Message == "" || tx.InMsg.Value == "" || tx.InMsg.Value == "0" {
			continue
		}
		transfers = append(transfers, TonTransfer{
			Hash:    tx.TransactionID.Hash,
			LT:      tx.TransactionID.LT,
			Value:   tx.InMsg.Value,
			Comment: tx.InMsg.Message,
		})
	}
	return transfers, nil
}

// PollPayments matches inbound transfers against pending invoices on a fixed
// interval. Confirmation is idempotent, so reprocessing a transfer after a
// partial failure is harmless.
func PollPayments(ctx context.Context, client *TonClient, pollInterval time.Duration) {
	log.Println("Starting TON payment watcher...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Payment watcher stopped.")
			return
		case <-ticker.C:
			transfers, err := client.GetInboundTransfers(ctx, 50)
			if err != nil {
				log.Printf("❌ Error polling TON transfers: %v", err)
				continue
			}
			if len(transfers) == 0 {
				continue
			}

			for _, transfer := range transfers {
				nano, err := decimal.NewFromString(transfer.Value)
				if err != nil {
					log.Printf("⚠️  Skipping transfer %s: bad value %q", transfer.Hash, transfer.Value)
					continue
				}
				amount := nano.Shift(-9) // nanoton → TON

				err = client.Payments.ConfirmByPayload(transfer.Comment, transfer.Hash, amount)
				switch {
				case err == nil:
					log.Printf("💎 Confirmed invoice for transfer %s (%s TON)", transfer.Hash, amount)
				case errors.Is(err, services.ErrInvoiceNotFound):
					// Transfer with an unrelated comment; not ours
				case errors.Is(err, services.ErrInvoiceExpired), errors.Is(err, services.ErrAmountTooLow):
					log.Printf("⚠️  Transfer %s rejected: %v", transfer.Hash, err)
				default:
					log.Printf("❌ Failed to confirm transfer %s: %v", transfer.Hash, err)
				}
			}
		}
	}
}

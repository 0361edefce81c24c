package ledger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/bank-account/internal/config"
	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

// Client fetches account balances from the core ledger SOAP service
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new ledger client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: cfg.LedgerURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// buildSOAPRequest creates a SOAP request for an account balance
func (c *Client) buildSOAPRequest(accountID string) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	env := doc.CreateElement("soap12:Envelope")
	env.CreateAttr("xmlns:soap12", "http://www.w3.org/2003/05/soap-envelope")
	req := env.CreateElement("soap12:Body").CreateElement("GetBalance")
	req.CreateAttr("xmlns", "http://ledger.bank.local/")
	req.CreateElement("AccountID").SetText(accountID)
	return doc.WriteToString()
}

// sendRequest sends SOAP request to the ledger
func (c *Client) sendRequest(ctx context.Context, soapRequest string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(soapRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://ledger.bank.local/GetBalance")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("Ledger XML response: %s", string(body))

	return body, nil
}

// parseXMLResponse extracts the balance. ok is false when the response carries no balance.
func (c *Client) parseXMLResponse(rawBody []byte) (balance float64, ok bool, err error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return 0, false, fmt.Errorf("failed to parse XML: %w", err)
	}

	result := doc.FindElement("//GetBalanceResult")
	if result == nil {
		return 0, false, fmt.Errorf("no balance result found in XML")
	}
	balanceElement := result.FindElement("./Balance")
	if balanceElement == nil || strings.TrimSpace(balanceElement.Text()) == "" {
		return 0, false, nil
	}
	if nilAttr := balanceElement.SelectAttrValue("xsi:nil", ""); nilAttr == "true" {
		return 0, false, nil
	}

	balance, err = strconv.ParseFloat(strings.TrimSpace(balanceElement.Text()), 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse balance: %w", err)
	}
	return balance, true, nil
}

// FetchBalance retrieves the ledger balance of an account
func (c *Client) FetchBalance(ctx context.Context, accountID string) (float64, bool, error) {
	soapRequest, err := c.buildSOAPRequest(accountID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to build request: %w", err)
	}
	body, err := c.sendRequest(ctx, soapRequest)
	if err != nil {
		return 0, false, err
	}

	balance, ok, err := c.parseXMLResponse(body)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		c.log.Infof("Ledger has no balance for account %s", accountID)
		return 0, false, nil
	}

	c.log.Infof("Retrieved ledger balance for account %s: %.2f", accountID, balance)
	return balance, true, nil
}

package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"villabook/internal/config"
)

var ErrNoContactID = errors.New("crm response carried no contact id")

type Contact struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Role       string `json:"role"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg config.CRMConfig) *Client {
	return &Client{
		baseURL: cfg.APIURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// UpsertContact posts the contact and returns the CRM's id for it, read from
// either a top-level "id" or a wrapped "data.id".
func (c *Client) UpsertContact(ctx context.Context, contact Contact) (string, error) {
	payload, err := json.Marshal(contact)
	if err != nil {
		return "", fmt.Errorf("marshal contact: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contacts", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build crm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("crm request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read crm response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "message").String()
		}
		return "", fmt.Errorf("crm returned status %d: %s", resp.StatusCode, msg)
	}

	for _, path := range []string{"id", "data.id"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
			return v.String(), nil
		}
	}
	return "", ErrNoContactID
}

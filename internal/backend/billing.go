package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/jwalitptl/patient-portal/internal/model"
)

type billEnvelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message,omitempty"`
	Invoice json.RawMessage `json:"invoice"`
	Receipt json.RawMessage `json:"receipt"`
	Data    json.RawMessage `json:"data"`
}

// BillNotFound is returned when the backend reports no such bill.
type BillNotFound struct {
	Kind    model.BillKind
	ID      string
	Message string
}

func (e *BillNotFound) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %s", e.Kind, e.ID, e.Message)
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (c *Client) fetchBill(ctx context.Context, kind model.BillKind, path, id string, out interface{}) error {
	if id == "" {
		return fmt.Errorf("%s id is required", kind)
	}

	var raw json.RawMessage
	if err := c.get(ctx, string(kind), path, url.Values{"id": []string{id}}, &raw); err != nil {
		return err
	}

	var env billEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	if env.Success != nil && !*env.Success {
		return &BillNotFound{Kind: kind, ID: id, Message: env.Message}
	}

	body := raw
	switch {
	case kind == model.BillKindInvoice && len(env.Invoice) > 0:
		body = env.Invoice
	case kind == model.BillKindReceipt && len(env.Receipt) > 0:
		body = env.Receipt
	case len(env.Data) > 0:
		body = env.Data
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	if err := c.validate.StructCtx(ctx, out); err != nil {
		return fmt.Errorf("invalid %s %s: %w", kind, id, err)
	}
	return nil
}

func (c *Client) Invoice(ctx context.Context, id string) (*model.Invoice, error) {
	var inv model.Invoice
	if err := c.fetchBill(ctx, model.BillKindInvoice, c.endpoints.Invoice, id, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *Client) Receipt(ctx context.Context, id string) (*model.Receipt, error) {
	var r model.Receipt
	if err := c.fetchBill(ctx, model.BillKindReceipt, c.endpoints.Receipt, id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TicketPrinter sends print jobs to the external print/PDF collaborator.
// Callers invoke it fire-and-forget after a successful state transition;
// its failure never rolls the transition back.
type TicketPrinter interface {
	PrintInvoice(ctx context.Context, ticket InvoiceTicket) error
}

// InvoiceTicket is the payload the print collaborator renders.
type InvoiceTicket struct {
	InvoiceNo    string `json:"invoice_no"`
	RepairID     uint   `json:"repair_id"`
	BranchID     string `json:"branch_id"`
	CustomerName string `json:"customer_name"`
	Total        string `json:"total"`
	Notes        string `json:"notes"`
}

type ticketPrinter struct {
	baseURL    string
	httpClient *http.Client
}

// NewTicketPrinter builds a client for the print collaborator. baseURL empty
// disables printing.
func NewTicketPrinter(baseURL string) TicketPrinter {
	return &ticketPrinter{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *ticketPrinter) PrintInvoice(ctx context.Context, ticket InvoiceTicket) error {
	if c.baseURL == "" {
		return fmt.Errorf("print service not configured")
	}

	body, err := json.Marshal(ticket)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tickets", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("print service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("print service returned status %d", resp.StatusCode)
	}
	return nil
}

package fulfillment

import (
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
)

// DefaultTransactionTimeout bounds one confirmation transaction
const DefaultTransactionTimeout = 30 * time.Second

// PartialInvoicePolicy decides what happens to the invoice when a line is under-delivered
type PartialInvoicePolicy string

const (
	// PartialInvoiceDefer leaves the invoice DRAFT until the order is fully delivered
	PartialInvoiceDefer PartialInvoicePolicy = "DEFER"
	// PartialInvoiceDelivered issues the invoice for what was delivered
	PartialInvoiceDelivered PartialInvoicePolicy = "INVOICE_DELIVERED"
)

// IsValid checks if the policy is a known value
func (p PartialInvoicePolicy) IsValid() bool {
	return p == PartialInvoiceDefer || p == PartialInvoiceDelivered
}

// ParsePartialInvoicePolicy parses a configured policy, case-insensitively
func ParsePartialInvoicePolicy(s string) (PartialInvoicePolicy, error) {
	p := PartialInvoicePolicy(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", shared.NewValidationError("INVALID_PARTIAL_INVOICE_POLICY",
			"Partial invoice policy must be DEFER or INVOICE_DELIVERED")
	}
	return p, nil
}

// Policy holds the configured behavior of a confirmation
type Policy struct {
	InvoiceOnFulfillment bool
	PartialInvoice       PartialInvoicePolicy
	AllowNegativeStock   bool
	TransactionTimeout   time.Duration
}

// Validate checks the policy is usable
func (p Policy) Validate() error {
	if p.InvoiceOnFulfillment && !p.PartialInvoice.IsValid() {
		return shared.NewValidationError("INVALID_PARTIAL_INVOICE_POLICY",
			"A partial invoice policy is required when invoicing on fulfillment")
	}
	return nil
}

// shouldIssueInvoice reports whether the invoice is issued for an order in its current delivery state
func (p Policy) shouldIssueInvoice(fullyDelivered bool) bool {
	if !p.InvoiceOnFulfillment {
		return false
	}
	return fullyDelivered || p.PartialInvoice == PartialInvoiceDelivered
}

func (p Policy) timeout() time.Duration {
	if p.TransactionTimeout <= 0 {
		return DefaultTransactionTimeout
	}
	return p.TransactionTimeout
}

package fulfillment

import "github.com/erp/fulfillment/internal/domain/shared"

// Confirmation errors
var (
	ErrOrderNotFound            = shared.NewNotFoundError("FULFILLMENT_ORDER_NOT_FOUND", "Fulfillment order not found")
	ErrShipmentNotLinked        = shared.NewStateConflictError("SHIPMENT_NOT_LINKED", "Fulfillment order has no shipment document")
	ErrParentOrderNotLinked     = shared.NewStateConflictError("PARENT_ORDER_NOT_LINKED", "Fulfillment order has no parent sale order")
	ErrInvoiceNotLinked         = shared.NewStateConflictError("INVOICE_NOT_LINKED", "Invoicing on fulfillment is enabled but the order has no invoice")
	ErrReceivableAccountMissing = shared.NewStateConflictError("RECEIVABLE_ACCOUNT_MISSING", "Customer has no receivable account")
	ErrUnknownInventoryItem     = shared.NewValidationError("UNKNOWN_INVENTORY_ITEM", "Inventory item does not exist")
	ErrTransactionTimeout       = shared.NewDomainError(shared.KindInternal, "TRANSACTION_TIMEOUT", "Confirmation did not finish in time")
)

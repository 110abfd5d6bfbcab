// Package document models the shipment and invoice documents issued by a fulfillment.
package document

// State is the lifecycle state shared by shipment and invoice documents
type State string

const (
	StateDraft    State = "DRAFT"
	StatePrepared State = "PREPARED"
	StateIssued   State = "ISSUED"
	StateVoid     State = "VOID"
)

// IsValid checks if the state is a known value
func (s State) IsValid() bool {
	switch s {
	case StateDraft, StatePrepared, StateIssued, StateVoid:
		return true
	}
	return false
}

// String returns the string representation
func (s State) String() string {
	return string(s)
}

// Kind distinguishes document numbering series
type Kind string

const (
	KindShipment Kind = "SHIPMENT"
	KindInvoice  Kind = "INVOICE"
)

// Prefix returns the human-readable number prefix for the kind
func (k Kind) Prefix() string {
	switch k {
	case KindShipment:
		return "SHP"
	case KindInvoice:
		return "INV"
	}
	return "DOC"
}

package shopify

// Order is the subset of the Shopify order webhook payload we act on.
// The record id can surface in several places depending on which checkout
// method produced the order.
type Order struct {
	ID              int64          `json:"id"`
	Email           string         `json:"email"`
	Note            string         `json:"note"`
	Tags            string         `json:"tags"`
	LineItems       []LineItem     `json:"line_items"`
	NoteAttributes  []Attribute    `json:"note_attributes"`
	CartAttributes  map[string]any `json:"cart_attributes"`
	OrderAttributes []Attribute    `json:"order_attributes"`
	Customer        *Customer      `json:"customer"`
}

type LineItem struct {
	VariantID  int64       `json:"variant_id"`
	Quantity   int         `json:"quantity"`
	Properties []Attribute `json:"properties"`
}

type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Customer struct {
	Email string `json:"email"`
	Note  string `json:"note"`
}

type draftOrderRequest struct {
	DraftOrder draftOrder `json:"draft_order"`
}

type draftOrder struct {
	LineItems      []draftLineItem `json:"line_items"`
	Customer       draftCustomer   `json:"customer"`
	Note           string          `json:"note"`
	Tags           string          `json:"tags"`
	NoteAttributes []Attribute     `json:"note_attributes"`
}

type draftLineItem struct {
	VariantID  string      `json:"variant_id"`
	Quantity   int         `json:"quantity"`
	Properties []Attribute `json:"properties"`
}

type draftCustomer struct {
	Email string `json:"email"`
}

type draftOrderResponse struct {
	DraftOrder struct {
		ID         int64  `json:"id"`
		InvoiceURL string `json:"invoice_url"`
	} `json:"draft_order"`
}

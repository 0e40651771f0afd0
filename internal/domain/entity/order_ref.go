package entity

import (
	"strconv"
	"strings"
)

// OrderRefKind tells how an order reference should be looked up first
type OrderRefKind int

const (
	// OrderRefNumeric is a reference that parses as a numeric order ID
	OrderRefNumeric OrderRefKind = iota
	// OrderRefDocument is a reference that can only be a document ID
	OrderRefDocument
)

// OrderRef identifies an order either by numeric ID or by document ID.
// Reference always holds the raw text so a numeric reference that matches
// no ID can still be tried as a document ID.
type OrderRef struct {
	Kind      OrderRefKind
	ID        uint
	Reference string
}

// ParseOrderRef classifies a raw reference. Empty input yields ok=false.
func ParseOrderRef(raw string) (OrderRef, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return OrderRef{}, false
	}
	if id, err := strconv.ParseUint(raw, 10, 0); err == nil && id > 0 {
		return OrderRef{Kind: OrderRefNumeric, ID: uint(id), Reference: raw}, true
	}
	return OrderRef{Kind: OrderRefDocument, Reference: raw}, true
}

func (r OrderRef) String() string {
	return r.Reference
}

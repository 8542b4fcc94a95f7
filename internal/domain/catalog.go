package domain

type ProductKind string

const (
	ProductKindItem ProductKind = "ITEM"
	ProductKindDeal ProductKind = "DEAL"
)

func (k ProductKind) Valid() bool {
	return k == ProductKindItem || k == ProductKindDeal
}

// ProductRef identifies a catalog product across the item and deal namespaces.
type ProductRef struct {
	Kind ProductKind
	ID   string
}

// Product is the catalog snapshot a line is priced from. For deals Price is the
// deal's own price, not the sum of its components.
type Product struct {
	Kind   ProductKind
	ID     string
	Name   string
	Price  Money
	Active bool
}

type MenuItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    Money  `json:"price"`
	Active   bool   `json:"active"`
}

type DealComponent struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type Deal struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Price  Money           `json:"price"`
	Active bool            `json:"active"`
	Items  []DealComponent `json:"items"`
}

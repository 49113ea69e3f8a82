package domain

// Category is a catalog facet derived from product rows; it has no table of its own.
type Category struct {
	Name         string `json:"name"`
	ProductCount int    `json:"productCount"`
	InStockCount int    `json:"inStockCount"`
}

package types

// DefaultPageSize is the page size applied when the caller does not provide
// one.
const DefaultPageSize = 20

// PaginationParams selects one page of a listing. Pages are 1-based.
type PaginationParams struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

// Pagination is the metadata attached to a paginated response.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
	Total   int `json:"total"`
}

// PaginatedVehicles is one page of projected vehicles.
type PaginatedVehicles struct {
	Items []Vehicle  `json:"items"`
	Meta  Pagination `json:"meta"`
}

package dto

// PageQuery paginación de listados (?page=&page_size=).
type PageQuery struct {
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}

// PageResponse listado paginado.
type PageResponse[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

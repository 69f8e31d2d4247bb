package address

import "address-validator/internal/locality"

type ValidateRequest struct {
	Postcode string `json:"postcode" validate:"required"`
	Suburb   string `json:"suburb" validate:"required"`
	State    string `json:"state" validate:"required"`
	Session  string `json:"session,omitempty"`
}

// Verdict is the user-facing outcome of Validate. Error is set only when IsValid is false.
type Verdict struct {
	IsValid         bool               `json:"isValid"`
	Error           string             `json:"error,omitempty"`
	MatchedLocation *locality.Location `json:"matchedLocation,omitempty"`
	Session         string             `json:"session"`
}

type SearchRequest struct {
	Query      string   `json:"query" validate:"required"`
	State      string   `json:"state,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Session    string   `json:"session,omitempty"`
}

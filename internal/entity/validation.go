package entity

// ValidationReport is derived from a ReceiptData and never persisted as primary data.
type ValidationReport struct {
	IsValid         bool     `json:"is_valid"`
	ConfidenceScore float64  `json:"confidence_score"`
	Issues          []string `json:"issues"`
	Warnings        []string `json:"warnings"`
}

// ParsedReceipt pairs a receipt with its report, the shape returned to callers.
type ParsedReceipt struct {
	Receipt    ReceiptData      `json:"receipt"`
	Validation ValidationReport `json:"validation"`
	Method     string           `json:"method"`
	SourcePath string           `json:"source_path,omitempty"`
}

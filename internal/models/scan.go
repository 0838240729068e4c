package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const MinTextLength = 255

// One text submission to the detector
type ScanRequest struct {
	ScanID  uuid.UUID
	Text    string `validate:"min=255"`
	Sandbox bool
}

type ScanSummary struct {
	AI    decimal.Decimal
	Human decimal.Decimal
}

// ScanResult is what the detector answered. Summary is nil when the answer has no scores
type ScanResult struct {
	Summary   *ScanSummary
	ErrorCode string
}

type VerdictKind string

const (
	VerdictAI               VerdictKind = "ai"
	VerdictHuman            VerdictKind = "human"
	VerdictTooShort         VerdictKind = "too_short"
	VerdictNotEnoughCredits VerdictKind = "not_enough_credits"
	VerdictUnknownResponse  VerdictKind = "unknown_response"
	VerdictUnauthorized     VerdictKind = "unauthorized"
	VerdictUnexpected       VerdictKind = "unexpected"
)

// Messages shown to the user
const (
	MessageAI               = "Likely AI-generated"
	MessageHuman            = "Likely human-generated"
	MessageTooShort         = "Text is too short to be analyzed. Please enter at least 255 characters."
	MessageNotEnoughCredits = "Error: Not enough credits to perform the scan."
	MessageUnknownResponse  = "Error: Could not determine AI score."
	MessageUnexpected       = "Error: An unexpected error occurred."
)

// Verdict is the outcome of one check
// Err keeps the failure cause for logs; it is never shown to the user
type Verdict struct {
	Kind   VerdictKind
	Score  decimal.Decimal
	ScanID uuid.UUID
	Err    error
}

func (v Verdict) Message() string {
	switch v.Kind {
	case VerdictAI:
		return MessageAI
	case VerdictHuman:
		return MessageHuman
	case VerdictTooShort:
		return MessageTooShort
	case VerdictNotEnoughCredits:
		return MessageNotEnoughCredits
	case VerdictUnknownResponse:
		return MessageUnknownResponse
	default:
		return MessageUnexpected
	}
}

// Failed reports whether the check produced no classification
func (v Verdict) Failed() bool {
	return v.Kind != VerdictAI && v.Kind != VerdictHuman
}

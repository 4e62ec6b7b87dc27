package services

import (
	"errors"

	"referral-ledger/internal/metrics"
)

// Validation errors: the input was malformed and nothing was touched.
var (
	ErrInvalidPayoutFormat = errors.New("invalid payout target format")
	ErrMissingField        = errors.New("missing required field")
	ErrInvalidDecision     = errors.New("decision must be APPROVED or REJECTED")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Policy errors: the request was well formed but the ledger refused it.
var (
	ErrSelfReferral         = errors.New("cannot refer yourself")
	ErrAlreadyReferred      = errors.New("account was already referred")
	ErrUnknownReferrer      = errors.New("referrer does not exist")
	ErrDuplicateDevice      = errors.New("device already used for a referral")
	ErrDailyLimitExceeded   = errors.New("daily withdrawal limit reached")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrDeviceUnverified     = errors.New("device is not verified")
	ErrChallengeNotFound    = errors.New("verification challenge not found")
	ErrChallengeExpired     = errors.New("verification challenge expired")
	ErrChallengeAlreadyUsed = errors.New("verification challenge already used")
	ErrInvalidTransition    = errors.New("withdrawal request is not pending")
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrRequestNotFound  = errors.New("withdrawal request not found")
	ErrReferralNotFound = errors.New("referral not found")
)

// ErrorKind groups ledger errors by how a caller should react to them.
type ErrorKind int

const (
	KindStorage ErrorKind = iota
	KindValidation
	KindPolicy
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPolicy:
		return "policy"
	case KindNotFound:
		return "not_found"
	default:
		return "storage"
	}
}

var errorKinds = map[error]ErrorKind{
	ErrInvalidPayoutFormat:  KindValidation,
	ErrMissingField:         KindValidation,
	ErrInvalidDecision:      KindValidation,
	ErrInvalidAmount:        KindValidation,
	ErrSelfReferral:         KindPolicy,
	ErrAlreadyReferred:      KindPolicy,
	ErrUnknownReferrer:      KindPolicy,
	ErrDuplicateDevice:      KindPolicy,
	ErrDailyLimitExceeded:   KindPolicy,
	ErrInsufficientBalance:  KindPolicy,
	ErrDeviceUnverified:     KindPolicy,
	ErrChallengeNotFound:    KindPolicy,
	ErrChallengeExpired:     KindPolicy,
	ErrChallengeAlreadyUsed: KindPolicy,
	ErrInvalidTransition:    KindPolicy,
	ErrAccountNotFound:      KindNotFound,
	ErrRequestNotFound:      KindNotFound,
	ErrReferralNotFound:     KindNotFound,
}

// KindOf classifies err. Anything that is not one of the sentinels above is a storage failure.
func KindOf(err error) ErrorKind {
	for sentinel, kind := range errorKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindStorage
}

// observe counts the outcome of a ledger operation.
func observe(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	metrics.LedgerOperations.WithLabelValues(operation, outcome).Inc()
}

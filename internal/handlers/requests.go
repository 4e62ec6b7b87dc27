package handlers

import (
	"strings"

	"referral-ledger/internal/models"
)

// OpenRequest is the first call a front-end makes for a user. InitData is the
// signed launch string from Telegram; UID may be omitted when it is sent.
type OpenRequest struct {
	InitData    string `json:"init_data" binding:"max=4096"`
	UID         string `json:"uid" binding:"max=64"`
	Ref         string `json:"ref" binding:"max=64"`
	Fingerprint string `json:"fingerprint" binding:"max=255"`
}

func (r *OpenRequest) normalize() {
	r.InitData = strings.TrimSpace(r.InitData)
	r.UID = strings.TrimSpace(r.UID)
	r.Ref = strings.TrimSpace(r.Ref)
	r.Fingerprint = strings.TrimSpace(r.Fingerprint)
}

type RegisterDeviceRequest struct {
	Fingerprint string `json:"fingerprint" binding:"required,max=255"`
}

type VerifyDeviceRequest struct {
	Fingerprint string `json:"fingerprint" binding:"required,max=255"`
	Code        string `json:"code" binding:"required,max=16"`
}

type WithdrawRequest struct {
	PayoutTarget string `json:"payout_target" binding:"required"`
}

type ResolveWithdrawalRequest struct {
	Decision string `json:"decision" binding:"required,oneof=APPROVED REJECTED approved rejected"`
}

func (r ResolveWithdrawalRequest) status() models.WithdrawalStatus {
	return models.WithdrawalStatus(strings.ToUpper(r.Decision))
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mentorlink/backend/internal/models"
	"github.com/mentorlink/backend/internal/services/referral"
)

// ReferralHandler handles referral code and commission requests
type ReferralHandler struct {
	referralService *referral.ReferralService
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(referralService *referral.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// CreateReferralCode creates a referral code owned by the caller
func (h *ReferralHandler) CreateReferralCode(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input referral.CreateReferralCodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, err := h.referralService.CreateReferralCode(c.Request.Context(), ownerID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, code)
}

// ApplyReferralCode records the caller's use of a referral code,
// returning the usage id to attach to a booking or purchase
func (h *ReferralHandler) ApplyReferralCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Code    string                      `json:"code" binding:"required"`
		Context models.ReferralUsageContext `json:"context" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.referralService.ApplyReferralCode(c.Request.Context(), userID, input.Code, input.Context)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMyReferralCodes lists the caller's referral codes
func (h *ReferralHandler) ListMyReferralCodes(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	codes, err := h.referralService.ListReferralCodes(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, codes)
}

// GetBalance returns the withdrawable balance of one referral code
func (h *ReferralHandler) GetBalance(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	codeID := c.Param("id")
	code, err := h.referralService.GetReferralCode(c.Request.Context(), codeID)
	if err != nil {
		respondError(c, err)
		return
	}
	if code.OwnerID != ownerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "referral code not found"})
		return
	}

	balance, err := h.referralService.AvailableBalance(c.Request.Context(), codeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"referral_code_id": codeID, "available_balance": balance})
}

// ListMyCommissions lists commission ledger rows across the caller's codes
func (h *ReferralHandler) ListMyCommissions(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, pageSize := pagination(c)
	commissions, total, err := h.referralService.ListCommissionsByOwner(c.Request.Context(), ownerID, referral.CommissionFilter{}, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commissions": commissions, "total": total, "page": page, "page_size": pageSize})
}

// RequestWithdrawal opens a commission withdrawal request
func (h *ReferralHandler) RequestWithdrawal(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		ReferralCodeID string  `json:"referral_code_id" binding:"required"`
		Amount         float64 `json:"amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.referralService.RequestCommissionPayment(c.Request.Context(), input.ReferralCodeID, ownerID, input.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// ListWithdrawals lists withdrawal requests for one of the caller's codes
func (h *ReferralHandler) ListWithdrawals(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	codeID := c.Param("id")
	code, err := h.referralService.GetReferralCode(c.Request.Context(), codeID)
	if err != nil {
		respondError(c, err)
		return
	}
	if code.OwnerID != ownerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "referral code not found"})
		return
	}

	page, pageSize := pagination(c)
	payments, total, err := h.referralService.ListCommissionPayments(c.Request.Context(), codeID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": payments, "total": total, "page": page, "page_size": pageSize})
}

// AdminUpdateWithdrawal applies an admin decision to a withdrawal request
func (h *ReferralHandler) AdminUpdateWithdrawal(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal ID"})
		return
	}

	var input referral.UpdateCommissionPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.referralService.UpdateCommissionPaymentStatus(c.Request.Context(), paymentID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mentorlink/backend/internal/services/purchase"
)

// PurchaseHandler handles practice purchase requests
type PurchaseHandler struct {
	purchaseService *purchase.PurchaseService
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(purchaseService *purchase.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

// CreatePurchase buys a practice item for the authenticated user
func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input purchase.CreatePurchaseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.purchaseService.CreatePurchase(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetPurchase returns one purchase with its payment
func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase ID"})
		return
	}

	result, err := h.purchaseService.GetPurchase(c.Request.Context(), purchaseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMyPurchases lists the authenticated user's purchases
func (h *PurchaseHandler) ListMyPurchases(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	purchases, err := h.purchaseService.ListPurchasesByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchases)
}

package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/eaglebank/scanpoint/shared/cqrs"
	"github.com/eaglebank/scanpoint/shared/middleware"
	"github.com/eaglebank/scanpoint/shared/models"
	"github.com/eaglebank/scanpoint/shared/utils"
)

const (
	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

// EncodeScanCode renders the scan payload for view as a PNG QR code.
func EncodeScanCode(view *models.SubjectView, size int) ([]byte, error) {
	content, err := json.Marshal(models.ScorePayload{ID: view.ID, FullName: view.FullName})
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(string(content), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

// GetQR serves GET /qr?user_id=N[&size=px].
func (h *ScoreHandler) GetQR(c *gin.Context) {
	userID, err := utils.ParseUserID(c.Query("user_id"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid user id")
		return
	}
	size, ok := queryInt(c, "size", defaultQRSize, minQRSize, maxQRSize)
	if !ok {
		middleware.RespondWithError(c, http.StatusBadRequest, fmt.Sprintf("size must be between %d and %d", minQRSize, maxQRSize))
		return
	}

	view, err := h.queries.GetUser(c.Request.Context(), cqrs.GetUserQuery{UserID: userID})
	if err != nil {
		h.respondReadError(c, err, "Failed to get user")
		return
	}

	png, err := EncodeScanCode(view, size)
	if err != nil {
		slog.Error("qr encode failed", "user_id", userID, "error", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

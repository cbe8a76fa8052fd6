package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"xenith/internal/repositories"
	"xenith/internal/services"
)

type patronRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"required"`
}

type patronUpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Phone     *string `json:"phone"`
}

func (h *Handler) createPatron(c *gin.Context) {
	var req patronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	patron, err := h.patrons.CreatePatron(c.Request.Context(), services.PatronInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, patron)
}

func (h *Handler) listPatrons(c *gin.Context) {
	patrons, err := h.patrons.ListPatrons(c.Request.Context(), repositories.PatronFilter{
		Email: c.Query("email"),
		Phone: c.Query("phone"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, patrons)
}

func (h *Handler) getPatron(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	patron, err := h.patrons.GetPatron(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, patron)
}

func (h *Handler) updatePatron(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req patronUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	patron, err := h.patrons.UpdatePatron(c.Request.Context(), id, services.PatronUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, patron)
}

func (h *Handler) deletePatron(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.patrons.DeletePatron(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getPatronBarcode(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	patron, err := h.patrons.GetPatron(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	serveBarcode(c, patron.BarcodePath)
}

func (h *Handler) regeneratePatronBarcode(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	patron, err := h.patrons.RegeneratePatronBarcode(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, patron)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

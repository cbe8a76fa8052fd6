package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"xenith/internal/repositories"
	"xenith/internal/services"
)

// ─── Libraries ────────────────────────────────────────────────────────────────

type libraryRequest struct {
	Name     string `json:"name" binding:"required"`
	Timezone string `json:"timezone" binding:"required"`
}

type libraryUpdateRequest struct {
	Name     *string `json:"name"`
	Timezone *string `json:"timezone"`
}

func (h *Handler) createLibrary(c *gin.Context) {
	var req libraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	library, err := h.admin.CreateLibrary(c.Request.Context(), services.LibraryInput{Name: req.Name, Timezone: req.Timezone})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, library)
}

func (h *Handler) listLibraries(c *gin.Context) {
	libraries, err := h.admin.ListLibraries(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, libraries)
}

func (h *Handler) getLibrary(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	library, err := h.admin.GetLibrary(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, library)
}

func (h *Handler) updateLibrary(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req libraryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	library, err := h.admin.UpdateLibrary(c.Request.Context(), id, services.LibraryUpdate{Name: req.Name, Timezone: req.Timezone})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, library)
}

func (h *Handler) deleteLibrary(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteLibrary(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ─── Librarians ───────────────────────────────────────────────────────────────

type librarianRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	IsAdmin  bool   `json:"is_admin"`
}

type librarianUpdateRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	IsAdmin  *bool   `json:"is_admin"`
}

type verifyRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *Handler) createLibrarian(c *gin.Context) {
	var req librarianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	librarian, err := h.admin.CreateLibrarian(c.Request.Context(), services.LibrarianInput{
		Username: req.Username,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, librarian)
}

func (h *Handler) listLibrarians(c *gin.Context) {
	librarians, err := h.admin.ListLibrarians(c.Request.Context(), repositories.LibrarianFilter{Username: c.Query("username")})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, librarians)
}

func (h *Handler) getLibrarian(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	librarian, err := h.admin.GetLibrarian(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, librarian)
}

func (h *Handler) updateLibrarian(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req librarianUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	librarian, err := h.admin.UpdateLibrarian(c.Request.Context(), id, services.LibrarianUpdate{
		Username: req.Username,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, librarian)
}

func (h *Handler) deleteLibrarian(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteLibrarian(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) verifyLibrarian(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.admin.VerifyLibrarianPassword(c.Request.Context(), id, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

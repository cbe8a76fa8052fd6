package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"xenith/internal/repositories"
	"xenith/internal/services"
)

// ─── Authors ──────────────────────────────────────────────────────────────────

type authorRequest struct {
	FirstName     string `json:"first_name" binding:"required"`
	MiddleInitial string `json:"middle_initial"`
	LastName      string `json:"last_name" binding:"required"`
}

type authorUpdateRequest struct {
	FirstName     *string `json:"first_name"`
	MiddleInitial *string `json:"middle_initial"`
	LastName      *string `json:"last_name"`
}

func (h *Handler) createAuthor(c *gin.Context) {
	var req authorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	author, err := h.catalog.CreateAuthor(c.Request.Context(), services.AuthorInput{
		FirstName:     req.FirstName,
		MiddleInitial: req.MiddleInitial,
		LastName:      req.LastName,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, author)
}

func (h *Handler) listAuthors(c *gin.Context) {
	authors, err := h.catalog.ListAuthors(c.Request.Context(), repositories.AuthorFilter{
		FirstName: c.Query("first_name"),
		LastName:  c.Query("last_name"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, authors)
}

func (h *Handler) getAuthor(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	author, err := h.catalog.GetAuthor(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, author)
}

func (h *Handler) updateAuthor(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req authorUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	author, err := h.catalog.UpdateAuthor(c.Request.Context(), id, services.AuthorUpdate{
		FirstName:     req.FirstName,
		MiddleInitial: req.MiddleInitial,
		LastName:      req.LastName,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, author)
}

func (h *Handler) deleteAuthor(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	cascade, ok := cascadeQuery(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteAuthor(c.Request.Context(), id, cascade); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listBooksForAuthor(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	books, err := h.catalog.ListBooksForAuthor(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// ─── Publishers ───────────────────────────────────────────────────────────────

type publisherRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) createPublisher(c *gin.Context) {
	var req publisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	publisher, err := h.catalog.CreatePublisher(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, publisher)
}

func (h *Handler) listPublishers(c *gin.Context) {
	publishers, err := h.catalog.ListPublishers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, publishers)
}

func (h *Handler) getPublisher(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	publisher, err := h.catalog.GetPublisher(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, publisher)
}

func (h *Handler) updatePublisher(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req publisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	publisher, err := h.catalog.UpdatePublisher(c.Request.Context(), id, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, publisher)
}

func (h *Handler) deletePublisher(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	cascade, ok := cascadeQuery(c)
	if !ok {
		return
	}
	if err := h.catalog.DeletePublisher(c.Request.Context(), id, cascade); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listBooksForPublisher(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	books, err := h.catalog.ListBooksForPublisher(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// ─── Books ────────────────────────────────────────────────────────────────────

type bookRequest struct {
	ISBN        string `json:"isbn" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Quantity    *int   `json:"quantity"`
	PublisherID uint   `json:"publisher_id" binding:"required"`
}

type bookUpdateRequest struct {
	Title       *string `json:"title"`
	Quantity    *int    `json:"quantity"`
	PublisherID *uint   `json:"publisher_id"`
}

func (h *Handler) createBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	book, err := h.catalog.CreateBook(c.Request.Context(), services.BookInput{
		ISBN:        req.ISBN,
		Title:       req.Title,
		Quantity:    req.Quantity,
		PublisherID: req.PublisherID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (h *Handler) listBooks(c *gin.Context) {
	filter := repositories.BookFilter{Title: c.Query("title")}
	if raw := c.Query("publisher_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil {
			badRequest(c, "invalid publisher_id")
			return
		}
		filter.PublisherID = uint(id)
	}

	books, err := h.catalog.ListBooks(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *Handler) getBook(c *gin.Context) {
	book, err := h.catalog.GetBook(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *Handler) updateBook(c *gin.Context) {
	var req bookUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	book, err := h.catalog.UpdateBook(c.Request.Context(), c.Param("isbn"), services.BookUpdate{
		Title:       req.Title,
		Quantity:    req.Quantity,
		PublisherID: req.PublisherID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *Handler) deleteBook(c *gin.Context) {
	cascade, ok := cascadeQuery(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteBook(c.Request.Context(), c.Param("isbn"), cascade); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getPublisherForBook(c *gin.Context) {
	publisher, err := h.catalog.GetPublisherForBook(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, publisher)
}

func (h *Handler) listAuthorsForBook(c *gin.Context) {
	authors, err := h.catalog.ListAuthorsForBook(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, authors)
}

func (h *Handler) linkAuthor(c *gin.Context) {
	authorID, ok := uintParam(c, "author_id")
	if !ok {
		return
	}
	link, err := h.catalog.LinkAuthor(c.Request.Context(), c.Param("isbn"), authorID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (h *Handler) unlinkAuthor(c *gin.Context) {
	authorID, ok := uintParam(c, "author_id")
	if !ok {
		return
	}
	if err := h.catalog.UnlinkAuthor(c.Request.Context(), c.Param("isbn"), authorID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listCopiesForBook(c *gin.Context) {
	copies, err := h.catalog.ListCopiesForBook(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, copies)
}

func (h *Handler) createCopyForBook(c *gin.Context) {
	h.addCopy(c, c.Param("isbn"))
}

// ─── Copies ───────────────────────────────────────────────────────────────────

type copyRequest struct {
	ISBN string `json:"isbn" binding:"required"`
}

func (h *Handler) createCopy(c *gin.Context) {
	var req copyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.addCopy(c, req.ISBN)
}

func (h *Handler) addCopy(c *gin.Context, isbn string) {
	copy, err := h.catalog.CreateCopy(c.Request.Context(), isbn)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, copy)
}

func (h *Handler) listCopies(c *gin.Context) {
	copies, err := h.catalog.ListCopies(c.Request.Context(), repositories.CopyFilter{BookISBN: c.Query("isbn")})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, copies)
}

func (h *Handler) getCopy(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	copy, err := h.catalog.GetCopy(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, copy)
}

func (h *Handler) deleteCopy(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCopy(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getBookForCopy(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	book, err := h.catalog.GetBookForCopy(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *Handler) getCopyBarcode(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	copy, err := h.catalog.GetCopy(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	serveBarcode(c, copy.BarcodePath)
}

func (h *Handler) regenerateCopyBarcode(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	copy, err := h.catalog.RegenerateCopyBarcode(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, copy)
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"xenith/internal/barcode"
	"xenith/internal/services"
)

type Handler struct {
	catalog services.CatalogService
	patrons services.PatronService
	admin   services.AdminService
	log     *slog.Logger
}

func New(catalog services.CatalogService, patrons services.PatronService, admin services.AdminService, log *slog.Logger) *Handler {
	return &Handler{catalog: catalog, patrons: patrons, admin: admin, log: log}
}

// RegisterRoutes mounts one router group per entity.
func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/", h.index)
	r.GET("/dashboard", h.dashboard)

	author := r.Group("/author")
	author.POST("", h.createAuthor)
	author.GET("", h.listAuthors)
	author.GET("/:id", h.getAuthor)
	author.PUT("/:id", h.updateAuthor)
	author.DELETE("/:id", h.deleteAuthor)
	author.GET("/:id/books", h.listBooksForAuthor)

	publisher := r.Group("/publisher")
	publisher.POST("", h.createPublisher)
	publisher.GET("", h.listPublishers)
	publisher.GET("/:id", h.getPublisher)
	publisher.PUT("/:id", h.updatePublisher)
	publisher.DELETE("/:id", h.deletePublisher)
	publisher.GET("/:id/books", h.listBooksForPublisher)

	book := r.Group("/book")
	book.POST("", h.createBook)
	book.GET("", h.listBooks)
	book.GET("/:isbn", h.getBook)
	book.PUT("/:isbn", h.updateBook)
	book.DELETE("/:isbn", h.deleteBook)
	book.GET("/:isbn/publisher", h.getPublisherForBook)
	book.GET("/:isbn/authors", h.listAuthorsForBook)
	book.PUT("/:isbn/authors/:author_id", h.linkAuthor)
	book.DELETE("/:isbn/authors/:author_id", h.unlinkAuthor)
	book.GET("/:isbn/copies", h.listCopiesForBook)
	book.POST("/:isbn/copies", h.createCopyForBook)

	copies := r.Group("/copy")
	copies.POST("", h.createCopy)
	copies.GET("", h.listCopies)
	copies.GET("/:id", h.getCopy)
	copies.DELETE("/:id", h.deleteCopy)
	copies.GET("/:id/book", h.getBookForCopy)
	copies.GET("/:id/barcode", h.getCopyBarcode)
	copies.POST("/:id/barcode", h.regenerateCopyBarcode)

	patron := r.Group("/patron")
	patron.POST("", h.createPatron)
	patron.GET("", h.listPatrons)
	patron.GET("/:id", h.getPatron)
	patron.PUT("/:id", h.updatePatron)
	patron.DELETE("/:id", h.deletePatron)
	patron.GET("/:id/barcode", h.getPatronBarcode)
	patron.POST("/:id/barcode", h.regeneratePatronBarcode)

	library := r.Group("/library")
	library.POST("", h.createLibrary)
	library.GET("", h.listLibraries)
	library.GET("/:id", h.getLibrary)
	library.PUT("/:id", h.updateLibrary)
	library.DELETE("/:id", h.deleteLibrary)

	librarian := r.Group("/librarian")
	librarian.POST("", h.createLibrarian)
	librarian.GET("", h.listLibrarians)
	librarian.GET("/:id", h.getLibrarian)
	librarian.PUT("/:id", h.updateLibrarian)
	librarian.DELETE("/:id", h.deleteLibrarian)
	librarian.POST("/:id/verify", h.verifyLibrarian)

	// Lending has no workflow yet.
	borrow := r.Group("/borrow")
	borrow.Any("", h.notImplemented)
	borrow.Any("/*path", h.notImplemented)
}

func (h *Handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"app": "Xenith", "desc": "Library Management made easy"})
}

func (h *Handler) dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "This is the dashboard"})
}

func (h *Handler) notImplemented(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": "borrowing is not available yet"})
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// statusFor maps service error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidField):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConstraintViolation):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, barcode.ErrUnknownCategory):
		return http.StatusBadRequest
	case errors.Is(err, barcode.ErrEncoding):
		return http.StatusInternalServerError
	case errors.Is(err, services.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	var ce *services.ConstraintError
	if errors.As(err, &ce) && ce.Constraint != "" {
		body["constraint"] = ce.Constraint
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func cascadeQuery(c *gin.Context) (bool, bool) {
	cascade, err := strconv.ParseBool(c.DefaultQuery("cascade", "false"))
	if err != nil {
		badRequest(c, "invalid cascade flag")
		return false, false
	}
	return cascade, true
}

// serveBarcode streams a stored PNG, or 404 when none was recorded or the
// file has gone missing.
func serveBarcode(c *gin.Context, path *string) {
	if path == nil || *path == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no barcode recorded"})
		return
	}
	if !fileExists(*path) {
		c.JSON(http.StatusNotFound, gin.H{"error": "barcode image missing"})
		return
	}
	c.Header("Content-Type", "image/png")
	c.File(*path)
}

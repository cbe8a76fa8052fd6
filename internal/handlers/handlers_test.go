package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xenith/internal/barcode"
	"xenith/internal/models"
	"xenith/internal/services"
	"xenith/internal/testutil"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	gen := barcode.NewGenerator(t.TempDir())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := gin.New()
	r.Use(RequestLogger(log))
	RegisterRoutes(r, New(
		services.NewCatalogService(db, gen, log),
		services.NewPatronService(db, gen, log),
		services.NewAdminService(db, 4, log),
		log,
	))
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestIndexAndDashboard(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"app":"Xenith","desc":"Library Management made easy"}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"This is the dashboard"}`, w.Body.String())
}

func TestBorrowNotImplemented(t *testing.T) {
	r := setupRouter(t)

	for _, path := range []string{"/borrow", "/borrow/checkout"} {
		w := do(t, r, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusNotImplemented, w.Code, path)
	}
}

func TestCatalogFlow(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodPost, "/publisher", gin.H{"name": "Acme"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var publisher models.Publisher
	decode(t, w, &publisher)

	w = do(t, r, http.MethodPost, "/book", gin.H{"isbn": "1234567890", "title": "T", "publisher_id": publisher.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var book models.Book
	decode(t, w, &book)
	assert.Equal(t, 1, book.Quantity)

	w = do(t, r, http.MethodPost, "/author", gin.H{"first_name": "Jane", "middle_initial": "Q", "last_name": "Doe"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var author models.Author
	decode(t, w, &author)

	w = do(t, r, http.MethodPut, fmt.Sprintf("/book/%s/authors/%d", book.ISBN, author.ID), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/book/"+book.ISBN+"/copies", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var copy models.Copy
	decode(t, w, &copy)

	w = do(t, r, http.MethodGet, "/book/"+book.ISBN+"/copies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var copies []models.Copy
	decode(t, w, &copies)
	require.Len(t, copies, 1)
	assert.Equal(t, copy.ID, copies[0].ID)

	w = do(t, r, http.MethodGet, "/copy/"+copy.ID.String()+"/book", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, fmt.Sprintf("/author/%d/books", author.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var books []models.Book
	decode(t, w, &books)
	require.Len(t, books, 1)

	w = do(t, r, http.MethodDelete, "/book/"+book.ISBN, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.NotEmpty(t, body["constraint"])

	w = do(t, r, http.MethodDelete, "/book/"+book.ISBN+"?cascade=true", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/book/"+book.ISBN, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookValidationIsBadRequest(t *testing.T) {
	r := setupRouter(t)
	w := do(t, r, http.MethodPost, "/publisher", gin.H{"name": "Acme"})
	require.Equal(t, http.StatusCreated, w.Code)
	var publisher models.Publisher
	decode(t, w, &publisher)

	w = do(t, r, http.MethodPost, "/book", gin.H{"isbn": "1234567890", "title": "T", "quantity": 0, "publisher_id": publisher.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/book", gin.H{"isbn": "1234567890", "title": "T", "publisher_id": 999})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPut, "/book/0000000000", gin.H{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDuplicateAuthorConflict(t *testing.T) {
	r := setupRouter(t)
	author := gin.H{"first_name": "Jane", "last_name": "Doe"}

	w := do(t, r, http.MethodPost, "/author", author)
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, r, http.MethodPost, "/author", author)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPatronBarcode(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodPost, "/patron", gin.H{
		"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com", "phone": "555-0100",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var patron models.Patron
	decode(t, w, &patron)

	w = do(t, r, http.MethodGet, "/patron/"+patron.ID.String()+"/barcode", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	_, err := png.Decode(w.Body)
	assert.NoError(t, err)

	w = do(t, r, http.MethodPost, "/patron", gin.H{
		"first_name": "Bob", "last_name": "Smith", "email": "ada@example.com", "phone": "555-0199",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodDelete, "/patron/"+patron.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, r, http.MethodGet, "/patron/"+patron.ID.String()+"/barcode", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidIdentifiers(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		method, path string
	}{
		{http.MethodGet, "/patron/not-a-uuid"},
		{http.MethodGet, "/copy/42"},
		{http.MethodGet, "/author/abc"},
		{http.MethodDelete, "/publisher/1?cascade=maybe"},
	}
	for _, tt := range tests {
		w := do(t, r, tt.method, tt.path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, tt.path)
	}
}

func TestLibrarianVerify(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodPost, "/librarian", gin.H{"username": "marian", "password": "s3cret"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "hashed")
	var librarian models.Librarian
	decode(t, w, &librarian)

	path := fmt.Sprintf("/librarian/%d/verify", librarian.ID)
	w = do(t, r, http.MethodPost, path, gin.H{"password": "s3cret"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, r, http.MethodPost, path, gin.H{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&services.NotFoundError{Entity: "book", Key: "x"}, http.StatusNotFound},
		{&services.ConstraintError{Constraint: "uq_patron_email"}, http.StatusConflict},
		{&services.ConstraintError{Constraint: "chk_book_quantity", Invalid: true}, http.StatusBadRequest},
		{&services.StorageError{Op: "list", Err: io.ErrUnexpectedEOF}, http.StatusServiceUnavailable},
		{&barcode.EncodingError{Category: "shelf", Err: barcode.ErrUnknownCategory}, http.StatusBadRequest},
		{&barcode.EncodingError{Category: barcode.CategoryCopy, Err: io.ErrShortWrite}, http.StatusInternalServerError},
		{services.ErrInvalidPassword, http.StatusUnauthorized},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

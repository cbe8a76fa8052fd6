package services

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"xenith/internal/barcode"
	"xenith/internal/testutil"
)

type testEnv struct {
	db       *gorm.DB
	root     string
	barcodes *barcode.Generator
	catalog  CatalogService
	patrons  PatronService
	admin    AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	root := t.TempDir()
	gen := barcode.NewGenerator(root)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		db:       db,
		root:     root,
		barcodes: gen,
		catalog:  NewCatalogService(db, gen, log),
		patrons:  NewPatronService(db, gen, log),
		admin:    NewAdminService(db, 4, log),
	}
}

// failingBarcodes renders nothing and reports an encoding failure.
type failingBarcodes struct{}

func (failingBarcodes) Generate(id uuid.UUID, category barcode.Category) (string, error) {
	return "", &barcode.EncodingError{Category: category, ID: id, Err: errors.New("encoder rejected input")}
}

func (failingBarcodes) Remove(string) error { return nil }

func intPtr(v int) *int       { return &v }
func uintPtr(v uint) *uint    { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

// Package barcode renders Code 128 images for patron cards and book copies.
//
// Images land at <root>/<category>_barcodes/<category>_<id>.png. The path is
// deterministic, so rendering the same id twice overwrites the earlier file.
package barcode

import (
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/google/uuid"
)

type Category string

const (
	CategoryPatron Category = "patron"
	CategoryCopy   Category = "copy"
)

const (
	defaultModuleWidth = 2
	defaultHeight      = 100
)

var (
	// ErrEncoding is the kind of every failure to produce a barcode image.
	ErrEncoding = errors.New("barcode encoding error")

	// ErrUnknownCategory is returned for any category other than patron or copy.
	ErrUnknownCategory = errors.New("unknown barcode category")
)

// EncodingError wraps the cause of a failed Generate call.
type EncodingError struct {
	Category Category
	ID       uuid.UUID
	Err      error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("barcode %s/%s: %v", e.Category, e.ID, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

func (c Category) Valid() bool {
	return c == CategoryPatron || c == CategoryCopy
}

// Dir is the directory holding images of this category, relative to the generator root.
func (c Category) Dir() string {
	return string(c) + "_barcodes"
}

// FileName is the image name for id within Dir.
func (c Category) FileName(id uuid.UUID) string {
	return fmt.Sprintf("%s_%s.png", c, id)
}

// ParseCategory accepts exactly "patron" or "copy".
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

type Generator struct {
	root        string
	moduleWidth int
	height      int
}

// NewGenerator writes images below root. An empty root means the working directory,
// in which case returned paths are relative.
func NewGenerator(root string) *Generator {
	return &Generator{
		root:        root,
		moduleWidth: defaultModuleWidth,
		height:      defaultHeight,
	}
}

// Path returns where Generate writes the image for id and category.
func (g *Generator) Path(id uuid.UUID, category Category) string {
	return filepath.Join(g.root, category.Dir(), category.FileName(id))
}

// Generate renders id as a Code 128 PNG and returns its path. The image is
// written to a temporary file first so a failed render leaves nothing behind.
func (g *Generator) Generate(id uuid.UUID, category Category) (string, error) {
	if !category.Valid() {
		return "", &EncodingError{Category: category, ID: id, Err: ErrUnknownCategory}
	}
	fail := func(err error) (string, error) {
		return "", &EncodingError{Category: category, ID: id, Err: err}
	}

	bc, err := code128.Encode(id.String())
	if err != nil {
		return fail(err)
	}
	scaled, err := barcode.Scale(bc, bc.Bounds().Dx()*g.moduleWidth, g.height)
	if err != nil {
		return fail(err)
	}

	dir := filepath.Join(g.root, category.Dir())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(err)
	}

	tmp, err := os.CreateTemp(dir, ".barcode-*.png")
	if err != nil {
		return fail(err)
	}
	tmpName := tmp.Name()
	if err := png.Encode(tmp, scaled); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fail(err)
	}

	path := g.Path(id, category)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fail(err)
	}
	return path, nil
}

// Remove deletes a previously generated image. A missing file is not an error.
func (g *Generator) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"xenith/internal/barcode"
	"xenith/internal/database"
	"xenith/internal/models"
	"xenith/internal/repositories"
)

// ─── Books ────────────────────────────────────────────────────────────────────

func (s *catalogService) CreateBook(ctx context.Context, in BookInput) (*models.Book, error) {
	book := &models.Book{
		ISBN:        strings.TrimSpace(in.ISBN),
		Title:       strings.TrimSpace(in.Title),
		Quantity:    1,
		PublisherID: in.PublisherID,
	}
	if in.Quantity != nil {
		book.Quantity = *in.Quantity
	}
	if err := validateISBN(book.ISBN); err != nil {
		return nil, err
	}
	if err := requireField("book", "title", book.Title); err != nil {
		return nil, err
	}
	if err := validateQuantity(book.Quantity); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensurePublisherExists(tx, book.PublisherID); err != nil {
			return err
		}
		if _, err := s.bookRepo.GetByISBN(tx, book.ISBN); err == nil {
			return conflict("book_pkey", "a book with this isbn already exists")
		} else if !database.IsNotFound(err) {
			return err
		}
		return s.bookRepo.Create(tx, book)
	})
	if err != nil {
		s.log.Error("create book failed", "isbn", book.ISBN, "error", err)
		return nil, translate("create book", "book", book.ISBN, err)
	}
	s.log.Info("book created", "isbn", book.ISBN, "title", book.Title, "publisher_id", book.PublisherID)
	return book, nil
}

func (s *catalogService) GetBook(ctx context.Context, isbn string) (*models.Book, error) {
	isbn = strings.TrimSpace(isbn)
	book, err := s.bookRepo.GetByISBN(s.db.WithContext(ctx), isbn)
	if err != nil {
		return nil, translate("get book", "book", isbn, err)
	}
	return book, nil
}

func (s *catalogService) ListBooks(ctx context.Context, filter repositories.BookFilter) ([]models.Book, error) {
	books, err := s.bookRepo.List(s.db.WithContext(ctx), filter)
	if err != nil {
		return nil, translate("list books", "book", nil, err)
	}
	return books, nil
}

// UpdateBook changes title, quantity or publisher. The ISBN is the key and
// cannot change.
func (s *catalogService) UpdateBook(ctx context.Context, isbn string, in BookUpdate) (*models.Book, error) {
	isbn = strings.TrimSpace(isbn)
	var updated *models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByISBN(tx, isbn)
		if err != nil {
			return err
		}
		fields := map[string]interface{}{}
		if v := trimmed(in.Title); v != nil {
			if err := requireField("book", "title", *v); err != nil {
				return err
			}
			book.Title = *v
			fields["title"] = *v
		}
		if in.Quantity != nil {
			if err := validateQuantity(*in.Quantity); err != nil {
				return err
			}
			book.Quantity = *in.Quantity
			fields["quantity"] = *in.Quantity
		}
		if in.PublisherID != nil {
			if err := s.ensurePublisherExists(tx, *in.PublisherID); err != nil {
				return err
			}
			book.PublisherID = *in.PublisherID
			fields["publisher_id"] = *in.PublisherID
		}
		if len(fields) > 0 {
			if err := s.bookRepo.Update(tx, isbn, fields); err != nil {
				return err
			}
		}
		updated = book
		return nil
	})
	if err != nil {
		return nil, translate("update book", "book", isbn, err)
	}
	s.log.Info("book updated", "isbn", isbn)
	return updated, nil
}

// DeleteBook removes a book. Copies and author links block the delete unless
// cascade is set.
func (s *catalogService) DeleteBook(ctx context.Context, isbn string, cascade bool) error {
	isbn = strings.TrimSpace(isbn)
	var barcodes []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		paths, err := s.deleteBookTx(tx, isbn, cascade)
		barcodes = paths
		return err
	})
	if err != nil {
		s.log.Warn("delete book failed", "isbn", isbn, "cascade", cascade, "error", err)
		return translate("delete book", "book", isbn, err)
	}
	s.removeBarcodes(barcodes)
	s.log.Info("book deleted", "isbn", isbn, "cascade", cascade)
	return nil
}

// deleteBookTx deletes dependents (when cascading) before the book and returns
// the barcode images of removed copies for deletion after commit.
func (s *catalogService) deleteBookTx(tx *gorm.DB, isbn string, cascade bool) ([]string, error) {
	if _, err := s.bookRepo.GetByISBN(tx, isbn); err != nil {
		return nil, err
	}
	copies, err := s.copyRepo.List(tx, repositories.CopyFilter{BookISBN: isbn})
	if err != nil {
		return nil, err
	}
	links, err := s.writesRepo.CountByBook(tx, isbn)
	if err != nil {
		return nil, err
	}
	if !cascade {
		if len(copies) > 0 {
			return nil, conflict("fk_copy_book", "book still has copies")
		}
		if links > 0 {
			return nil, conflict("fk_writes_book", "book is still linked to authors")
		}
	}

	var paths []string
	for _, c := range copies {
		if err := s.copyRepo.Delete(tx, c.ID); err != nil {
			return nil, err
		}
		if c.BarcodePath != nil {
			paths = append(paths, *c.BarcodePath)
		}
	}
	if links > 0 {
		if err := s.writesRepo.DeleteByBook(tx, isbn); err != nil {
			return nil, err
		}
	}
	if err := s.bookRepo.Delete(tx, isbn); err != nil {
		return nil, err
	}
	return paths, nil
}

func (s *catalogService) GetPublisherForBook(ctx context.Context, isbn string) (*models.Publisher, error) {
	isbn = strings.TrimSpace(isbn)
	db := s.db.WithContext(ctx)
	book, err := s.bookRepo.GetByISBN(db, isbn)
	if err != nil {
		return nil, translate("get publisher for book", "book", isbn, err)
	}
	publisher, err := s.publisherRepo.GetByID(db, book.PublisherID)
	if err != nil {
		return nil, translate("get publisher for book", "publisher", book.PublisherID, err)
	}
	return publisher, nil
}

func (s *catalogService) ensurePublisherExists(tx *gorm.DB, id uint) error {
	if id == 0 {
		return invalid("book.publisher_id", "publisher_id is required")
	}
	if _, err := s.publisherRepo.GetByID(tx, id); err != nil {
		if database.IsNotFound(err) {
			return conflict("fk_book_publisher", "publisher does not exist")
		}
		return err
	}
	return nil
}

func (s *catalogService) ensureBookExists(tx *gorm.DB, isbn, constraint string) error {
	if _, err := s.bookRepo.GetByISBN(tx, isbn); err != nil {
		if database.IsNotFound(err) {
			return conflict(constraint, "book "+isbn+" does not exist")
		}
		return err
	}
	return nil
}

// ─── Writes (author ↔ book) ───────────────────────────────────────────────────

// LinkAuthor records that authorID wrote isbn. Both must already exist.
func (s *catalogService) LinkAuthor(ctx context.Context, isbn string, authorID uint) (*models.Writes, error) {
	isbn = strings.TrimSpace(isbn)
	link := &models.Writes{BookISBN: isbn, AuthorID: authorID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureBookExists(tx, isbn, "fk_writes_book"); err != nil {
			return err
		}
		if _, err := s.authorRepo.GetByID(tx, authorID); err != nil {
			if database.IsNotFound(err) {
				return conflict("fk_writes_author", "author does not exist")
			}
			return err
		}
		if _, err := s.writesRepo.Get(tx, isbn, authorID); err == nil {
			return conflict("writes_pkey", "author is already linked to this book")
		} else if !database.IsNotFound(err) {
			return err
		}
		return s.writesRepo.Create(tx, link)
	})
	if err != nil {
		s.log.Warn("link author failed", "isbn", isbn, "author_id", authorID, "error", err)
		return nil, translate("link author", "writes", isbn, err)
	}
	s.log.Info("author linked", "isbn", isbn, "author_id", authorID)
	return link, nil
}

func (s *catalogService) UnlinkAuthor(ctx context.Context, isbn string, authorID uint) error {
	isbn = strings.TrimSpace(isbn)
	err := s.writesRepo.Delete(s.db.WithContext(ctx), isbn, authorID)
	if err != nil {
		return translate("unlink author", "writes", fmt.Sprintf("%s/%d", isbn, authorID), err)
	}
	s.log.Info("author unlinked", "isbn", isbn, "author_id", authorID)
	return nil
}

func (s *catalogService) ListAuthorsForBook(ctx context.Context, isbn string) ([]models.Author, error) {
	isbn = strings.TrimSpace(isbn)
	db := s.db.WithContext(ctx)
	if _, err := s.bookRepo.GetByISBN(db, isbn); err != nil {
		return nil, translate("list authors for book", "book", isbn, err)
	}
	authors, err := s.authorRepo.ListByBook(db, isbn)
	if err != nil {
		return nil, translate("list authors for book", "author", nil, err)
	}
	return authors, nil
}

// ─── Copies ───────────────────────────────────────────────────────────────────

// CreateCopy adds a physical copy of isbn, renders its barcode and stores the
// image path on the copy, all in one unit of work. The image is removed again
// if the unit of work does not commit.
func (s *catalogService) CreateCopy(ctx context.Context, isbn string) (*models.Copy, error) {
	isbn = strings.TrimSpace(isbn)
	copy := &models.Copy{BookISBN: isbn}

	var written string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureBookExists(tx, isbn, "fk_copy_book"); err != nil {
			return err
		}
		if err := s.copyRepo.Create(tx, copy); err != nil {
			return err
		}
		path, err := s.barcodes.Generate(copy.ID, barcode.CategoryCopy)
		if err != nil {
			return err
		}
		written = path
		if err := s.copyRepo.UpdateBarcodePath(tx, copy.ID, path); err != nil {
			return err
		}
		copy.BarcodePath = &path
		return nil
	})
	if err != nil {
		if written != "" {
			s.removeBarcodes([]string{written})
		}
		s.log.Error("create copy failed", "isbn", isbn, "error", err)
		return nil, translate("create copy", "copy", nil, err)
	}
	s.log.Info("copy created", "id", copy.ID, "isbn", isbn, "barcode", written)
	return copy, nil
}

func (s *catalogService) GetCopy(ctx context.Context, id uuid.UUID) (*models.Copy, error) {
	copy, err := s.copyRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, translate("get copy", "copy", id, err)
	}
	return copy, nil
}

func (s *catalogService) ListCopies(ctx context.Context, filter repositories.CopyFilter) ([]models.Copy, error) {
	copies, err := s.copyRepo.List(s.db.WithContext(ctx), filter)
	if err != nil {
		return nil, translate("list copies", "copy", nil, err)
	}
	return copies, nil
}

func (s *catalogService) ListCopiesForBook(ctx context.Context, isbn string) ([]models.Copy, error) {
	isbn = strings.TrimSpace(isbn)
	db := s.db.WithContext(ctx)
	if _, err := s.bookRepo.GetByISBN(db, isbn); err != nil {
		return nil, translate("list copies for book", "book", isbn, err)
	}
	copies, err := s.copyRepo.List(db, repositories.CopyFilter{BookISBN: isbn})
	if err != nil {
		return nil, translate("list copies for book", "copy", nil, err)
	}
	return copies, nil
}

func (s *catalogService) GetBookForCopy(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	db := s.db.WithContext(ctx)
	copy, err := s.copyRepo.GetByID(db, id)
	if err != nil {
		return nil, translate("get book for copy", "copy", id, err)
	}
	book, err := s.bookRepo.GetByISBN(db, copy.BookISBN)
	if err != nil {
		return nil, translate("get book for copy", "book", copy.BookISBN, err)
	}
	return book, nil
}

// RegenerateCopyBarcode re-renders the image at its deterministic path.
func (s *catalogService) RegenerateCopyBarcode(ctx context.Context, id uuid.UUID) (*models.Copy, error) {
	var updated *models.Copy
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		copy, err := s.copyRepo.GetByID(tx, id)
		if err != nil {
			return err
		}
		path, err := s.barcodes.Generate(copy.ID, barcode.CategoryCopy)
		if err != nil {
			return err
		}
		if err := s.copyRepo.UpdateBarcodePath(tx, copy.ID, path); err != nil {
			return err
		}
		copy.BarcodePath = &path
		updated = copy
		return nil
	})
	if err != nil {
		return nil, translate("regenerate copy barcode", "copy", id, err)
	}
	return updated, nil
}

func (s *catalogService) DeleteCopy(ctx context.Context, id uuid.UUID) error {
	var path *string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		copy, err := s.copyRepo.GetByID(tx, id)
		if err != nil {
			return err
		}
		path = copy.BarcodePath
		return s.copyRepo.Delete(tx, id)
	})
	if err != nil {
		return translate("delete copy", "copy", id, err)
	}
	if path != nil {
		s.removeBarcodes([]string{*path})
	}
	s.log.Info("copy deleted", "id", id)
	return nil
}

package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"xenith/internal/barcode"
	"xenith/internal/database"
	"xenith/internal/models"
	"xenith/internal/repositories"
)

// BarcodeGenerator renders barcode images and removes them again.
type BarcodeGenerator interface {
	Generate(id uuid.UUID, category barcode.Category) (string, error)
	Remove(path string) error
}

// ─── Inputs ───────────────────────────────────────────────────────────────────

type AuthorInput struct {
	FirstName     string
	MiddleInitial string
	LastName      string
}

type AuthorUpdate struct {
	FirstName     *string
	MiddleInitial *string
	LastName      *string
}

type BookInput struct {
	ISBN        string
	Title       string
	Quantity    *int // nil means 1
	PublisherID uint
}

type BookUpdate struct {
	Title       *string
	Quantity    *int
	PublisherID *uint
}

// ─── Service Interface ────────────────────────────────────────────────────────

// CatalogService manages authors, publishers, books, their author links and
// physical copies.
type CatalogService interface {
	CreateAuthor(ctx context.Context, in AuthorInput) (*models.Author, error)
	GetAuthor(ctx context.Context, id uint) (*models.Author, error)
	ListAuthors(ctx context.Context, filter repositories.AuthorFilter) ([]models.Author, error)
	UpdateAuthor(ctx context.Context, id uint, in AuthorUpdate) (*models.Author, error)
	DeleteAuthor(ctx context.Context, id uint, cascade bool) error
	ListBooksForAuthor(ctx context.Context, authorID uint) ([]models.Book, error)

	CreatePublisher(ctx context.Context, name string) (*models.Publisher, error)
	GetPublisher(ctx context.Context, id uint) (*models.Publisher, error)
	ListPublishers(ctx context.Context) ([]models.Publisher, error)
	UpdatePublisher(ctx context.Context, id uint, name string) (*models.Publisher, error)
	DeletePublisher(ctx context.Context, id uint, cascade bool) error
	ListBooksForPublisher(ctx context.Context, publisherID uint) ([]models.Book, error)

	CreateBook(ctx context.Context, in BookInput) (*models.Book, error)
	GetBook(ctx context.Context, isbn string) (*models.Book, error)
	ListBooks(ctx context.Context, filter repositories.BookFilter) ([]models.Book, error)
	UpdateBook(ctx context.Context, isbn string, in BookUpdate) (*models.Book, error)
	DeleteBook(ctx context.Context, isbn string, cascade bool) error
	GetPublisherForBook(ctx context.Context, isbn string) (*models.Publisher, error)

	LinkAuthor(ctx context.Context, isbn string, authorID uint) (*models.Writes, error)
	UnlinkAuthor(ctx context.Context, isbn string, authorID uint) error
	ListAuthorsForBook(ctx context.Context, isbn string) ([]models.Author, error)

	CreateCopy(ctx context.Context, isbn string) (*models.Copy, error)
	GetCopy(ctx context.Context, id uuid.UUID) (*models.Copy, error)
	ListCopies(ctx context.Context, filter repositories.CopyFilter) ([]models.Copy, error)
	ListCopiesForBook(ctx context.Context, isbn string) ([]models.Copy, error)
	GetBookForCopy(ctx context.Context, id uuid.UUID) (*models.Book, error)
	RegenerateCopyBarcode(ctx context.Context, id uuid.UUID) (*models.Copy, error)
	DeleteCopy(ctx context.Context, id uuid.UUID) error
}

// ─── Implementation ───────────────────────────────────────────────────────────

type catalogService struct {
	db            *gorm.DB
	log           *slog.Logger
	barcodes      BarcodeGenerator
	authorRepo    repositories.AuthorRepository
	publisherRepo repositories.PublisherRepository
	bookRepo      repositories.BookRepository
	writesRepo    repositories.WritesRepository
	copyRepo      repositories.CopyRepository
}

// NewCatalogService wires the catalog repositories onto db.
func NewCatalogService(db *gorm.DB, barcodes BarcodeGenerator, log *slog.Logger) CatalogService {
	return &catalogService{
		db:            db,
		log:           log.With("service", "catalog"),
		barcodes:      barcodes,
		authorRepo:    repositories.NewAuthorRepository(db),
		publisherRepo: repositories.NewPublisherRepository(db),
		bookRepo:      repositories.NewBookRepository(db),
		writesRepo:    repositories.NewWritesRepository(db),
		copyRepo:      repositories.NewCopyRepository(db),
	}
}

// ─── Authors ──────────────────────────────────────────────────────────────────

func (s *catalogService) CreateAuthor(ctx context.Context, in AuthorInput) (*models.Author, error) {
	author := &models.Author{
		FirstName:     strings.TrimSpace(in.FirstName),
		MiddleInitial: strings.TrimSpace(in.MiddleInitial),
		LastName:      strings.TrimSpace(in.LastName),
	}
	if err := validateAuthor(author); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureAuthorNameFree(tx, author, 0); err != nil {
			return err
		}
		return s.authorRepo.Create(tx, author)
	})
	if err != nil {
		s.log.Error("create author failed", "first_name", author.FirstName, "last_name", author.LastName, "error", err)
		return nil, translate("create author", "author", nil, err)
	}
	s.log.Info("author created", "id", author.ID)
	return author, nil
}

func (s *catalogService) GetAuthor(ctx context.Context, id uint) (*models.Author, error) {
	author, err := s.authorRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, translate("get author", "author", id, err)
	}
	return author, nil
}

func (s *catalogService) ListAuthors(ctx context.Context, filter repositories.AuthorFilter) ([]models.Author, error) {
	authors, err := s.authorRepo.List(s.db.WithContext(ctx), filter)
	if err != nil {
		return nil, translate("list authors", "author", nil, err)
	}
	return authors, nil
}

func (s *catalogService) UpdateAuthor(ctx context.Context, id uint, in AuthorUpdate) (*models.Author, error) {
	var updated *models.Author
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		author, err := s.authorRepo.GetByID(tx, id)
		if err != nil {
			return err
		}
		if v := trimmed(in.FirstName); v != nil {
			author.FirstName = *v
		}
		if v := trimmed(in.MiddleInitial); v != nil {
			author.MiddleInitial = *v
		}
		if v := trimmed(in.LastName); v != nil {
			author.LastName = *v
		}
		if err := validateAuthor(author); err != nil {
			return err
		}
		if err := s.ensureAuthorNameFree(tx, author, id); err != nil {
			return err
		}
		if err := s.authorRepo.Update(tx, id, map[string]interface{}{
			"first_name":     author.FirstName,
			"middle_initial": author.MiddleInitial,
			"last_name":      author.LastName,
		}); err != nil {
			return err
		}
		updated = author
		return nil
	})
	if err != nil {
		return nil, translate("update author", "author", id, err)
	}
	s.log.Info("author updated", "id", id)
	return updated, nil
}

// DeleteAuthor removes an author. Without cascade it fails while the author
// is still linked to books; with cascade the links go first.
func (s *catalogService) DeleteAuthor(ctx context.Context, id uint, cascade bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.authorRepo.GetByID(tx, id); err != nil {
			return err
		}
		links, err := s.writesRepo.CountByAuthor(tx, id)
		if err != nil {
			return err
		}
		if links > 0 {
			if !cascade {
				return conflict("fk_writes_author", "author is linked to books")
			}
			if err := s.writesRepo.DeleteByAuthor(tx, id); err != nil {
				return err
			}
		}
		return s.authorRepo.Delete(tx, id)
	})
	if err != nil {
		s.log.Warn("delete author failed", "id", id, "error", err)
		return translate("delete author", "author", id, err)
	}
	s.log.Info("author deleted", "id", id, "cascade", cascade)
	return nil
}

func (s *catalogService) ListBooksForAuthor(ctx context.Context, authorID uint) ([]models.Book, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.authorRepo.GetByID(db, authorID); err != nil {
		return nil, translate("list books for author", "author", authorID, err)
	}
	books, err := s.bookRepo.ListByAuthor(db, authorID)
	if err != nil {
		return nil, translate("list books for author", "book", nil, err)
	}
	return books, nil
}

func validateAuthor(a *models.Author) error {
	if err := requireField("author", "first_name", a.FirstName); err != nil {
		return err
	}
	return requireField("author", "last_name", a.LastName)
}

// ensureAuthorNameFree rejects a name triple held by an author other than self.
func (s *catalogService) ensureAuthorNameFree(tx *gorm.DB, a *models.Author, self uint) error {
	existing, err := s.authorRepo.FindByName(tx, a.FirstName, a.MiddleInitial, a.LastName)
	if database.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID == self {
		return nil
	}
	return conflict("uq_author_name", "an author with this name already exists")
}

// ─── Publishers ───────────────────────────────────────────────────────────────

func (s *catalogService) CreatePublisher(ctx context.Context, name string) (*models.Publisher, error) {
	publisher := &models.Publisher{Name: strings.TrimSpace(name)}
	if err := requireField("publisher", "name", publisher.Name); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensurePublisherNameFree(tx, publisher.Name, 0); err != nil {
			return err
		}
		return s.publisherRepo.Create(tx, publisher)
	})
	if err != nil {
		s.log.Error("create publisher failed", "name", publisher.Name, "error", err)
		return nil, translate("create publisher", "publisher", nil, err)
	}
	s.log.Info("publisher created", "id", publisher.ID, "name", publisher.Name)
	return publisher, nil
}

func (s *catalogService) GetPublisher(ctx context.Context, id uint) (*models.Publisher, error) {
	publisher, err := s.publisherRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, translate("get publisher", "publisher", id, err)
	}
	return publisher, nil
}

func (s *catalogService) ListPublishers(ctx context.Context) ([]models.Publisher, error) {
	publishers, err := s.publisherRepo.List(s.db.WithContext(ctx))
	if err != nil {
		return nil, translate("list publishers", "publisher", nil, err)
	}
	return publishers, nil
}

func (s *catalogService) UpdatePublisher(ctx context.Context, id uint, name string) (*models.Publisher, error) {
	name = strings.TrimSpace(name)
	if err := requireField("publisher", "name", name); err != nil {
		return nil, err
	}

	var updated *models.Publisher
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		publisher, err := s.publisherRepo.GetByID(tx, id)
		if err != nil {
			return err
		}
		if err := s.ensurePublisherNameFree(tx, name, id); err != nil {
			return err
		}
		if err := s.publisherRepo.Update(tx, id, map[string]interface{}{"name": name}); err != nil {
			return err
		}
		publisher.Name = name
		updated = publisher
		return nil
	})
	if err != nil {
		return nil, translate("update publisher", "publisher", id, err)
	}
	s.log.Info("publisher updated", "id", id)
	return updated, nil
}

// DeletePublisher removes a publisher. Its books block the delete unless
// cascade is set, in which case each book goes with its copies and links.
func (s *catalogService) DeletePublisher(ctx context.Context, id uint, cascade bool) error {
	var barcodes []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.publisherRepo.GetByID(tx, id); err != nil {
			return err
		}
		books, err := s.bookRepo.List(tx, repositories.BookFilter{PublisherID: id})
		if err != nil {
			return err
		}
		if len(books) > 0 && !cascade {
			return conflict("fk_book_publisher", "publisher still has books")
		}
		for _, book := range books {
			paths, err := s.deleteBookTx(tx, book.ISBN, true)
			if err != nil {
				return err
			}
			barcodes = append(barcodes, paths...)
		}
		return s.publisherRepo.Delete(tx, id)
	})
	if err != nil {
		s.log.Warn("delete publisher failed", "id", id, "error", err)
		return translate("delete publisher", "publisher", id, err)
	}
	s.removeBarcodes(barcodes)
	s.log.Info("publisher deleted", "id", id, "cascade", cascade)
	return nil
}

func (s *catalogService) ListBooksForPublisher(ctx context.Context, publisherID uint) ([]models.Book, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.publisherRepo.GetByID(db, publisherID); err != nil {
		return nil, translate("list books for publisher", "publisher", publisherID, err)
	}
	books, err := s.bookRepo.List(db, repositories.BookFilter{PublisherID: publisherID})
	if err != nil {
		return nil, translate("list books for publisher", "book", nil, err)
	}
	return books, nil
}

func (s *catalogService) ensurePublisherNameFree(tx *gorm.DB, name string, self uint) error {
	existing, err := s.publisherRepo.FindByName(tx, name)
	if database.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID == self {
		return nil
	}
	return conflict("uq_publisher_name", "publisher name already exists")
}

// removeBarcodes deletes image files after their rows are gone for good.
func (s *catalogService) removeBarcodes(paths []string) {
	for _, p := range paths {
		if err := s.barcodes.Remove(p); err != nil {
			s.log.Warn("failed to remove barcode image", "path", p, "error", err)
		}
	}
}

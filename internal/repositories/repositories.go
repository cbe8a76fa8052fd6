package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"xenith/internal/models"
)

// Every method takes the handle to run on; nil means the repository's own
// connection. Services pass the transaction of the current unit of work.

type AuthorFilter struct {
	FirstName string
	LastName  string
}

type BookFilter struct {
	Title       string
	PublisherID uint
}

type CopyFilter struct {
	BookISBN string
}

type PatronFilter struct {
	Email string
	Phone string
}

type LibrarianFilter struct {
	Username string
}

type AuthorRepository interface {
	Create(db *gorm.DB, author *models.Author) error
	GetByID(db *gorm.DB, id uint) (*models.Author, error)
	FindByName(db *gorm.DB, first, middle, last string) (*models.Author, error)
	List(db *gorm.DB, filter AuthorFilter) ([]models.Author, error)
	ListByBook(db *gorm.DB, isbn string) ([]models.Author, error)
	Update(db *gorm.DB, id uint, fields map[string]interface{}) error
	Delete(db *gorm.DB, id uint) error
}

type PublisherRepository interface {
	Create(db *gorm.DB, publisher *models.Publisher) error
	GetByID(db *gorm.DB, id uint) (*models.Publisher, error)
	FindByName(db *gorm.DB, name string) (*models.Publisher, error)
	List(db *gorm.DB) ([]models.Publisher, error)
	Update(db *gorm.DB, id uint, fields map[string]interface{}) error
	Delete(db *gorm.DB, id uint) error
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	GetByISBN(db *gorm.DB, isbn string) (*models.Book, error)
	List(db *gorm.DB, filter BookFilter) ([]models.Book, error)
	ListByAuthor(db *gorm.DB, authorID uint) ([]models.Book, error)
	Update(db *gorm.DB, isbn string, fields map[string]interface{}) error
	Delete(db *gorm.DB, isbn string) error
}

type WritesRepository interface {
	Create(db *gorm.DB, writes *models.Writes) error
	Get(db *gorm.DB, isbn string, authorID uint) (*models.Writes, error)
	CountByBook(db *gorm.DB, isbn string) (int64, error)
	CountByAuthor(db *gorm.DB, authorID uint) (int64, error)
	Delete(db *gorm.DB, isbn string, authorID uint) error
	DeleteByBook(db *gorm.DB, isbn string) error
	DeleteByAuthor(db *gorm.DB, authorID uint) error
}

type CopyRepository interface {
	Create(db *gorm.DB, copy *models.Copy) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Copy, error)
	List(db *gorm.DB, filter CopyFilter) ([]models.Copy, error)
	UpdateBarcodePath(db *gorm.DB, id uuid.UUID, path string) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

type PatronRepository interface {
	Create(db *gorm.DB, patron *models.Patron) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Patron, error)
	List(db *gorm.DB, filter PatronFilter) ([]models.Patron, error)
	ExistsWith(db *gorm.DB, column, value string, exclude uuid.UUID) (bool, error)
	Update(db *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	UpdateBarcodePath(db *gorm.DB, id uuid.UUID, path string) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

type LibraryRepository interface {
	Create(db *gorm.DB, library *models.Library) error
	GetByID(db *gorm.DB, id uint) (*models.Library, error)
	List(db *gorm.DB) ([]models.Library, error)
	Update(db *gorm.DB, id uint, fields map[string]interface{}) error
	Delete(db *gorm.DB, id uint) error
}

type LibrarianRepository interface {
	Create(db *gorm.DB, librarian *models.Librarian) error
	GetByID(db *gorm.DB, id uint) (*models.Librarian, error)
	List(db *gorm.DB, filter LibrarianFilter) ([]models.Librarian, error)
	Update(db *gorm.DB, id uint, fields map[string]interface{}) error
	Delete(db *gorm.DB, id uint) error
}

// concrete implementations

type base struct {
	db *gorm.DB
}

func (b base) conn(db *gorm.DB) *gorm.DB {
	if db == nil {
		return b.db
	}
	return db
}

// create skips association upserts; related rows must already exist.
func (b base) create(db *gorm.DB, value interface{}) error {
	return b.conn(db).Omit(clause.Associations).Create(value).Error
}

// updates applies fields to the single row matched by query and reports
// gorm.ErrRecordNotFound when nothing matched.
func (b base) updates(db *gorm.DB, model interface{}, fields map[string]interface{}, query string, args ...interface{}) error {
	res := b.conn(db).Model(model).Where(query, args...).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (b base) delete(db *gorm.DB, model interface{}, query string, args ...interface{}) error {
	res := b.conn(db).Where(query, args...).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type authorRepository struct{ base }

func NewAuthorRepository(db *gorm.DB) AuthorRepository {
	return &authorRepository{base{db: db}}
}

func (r *authorRepository) Create(db *gorm.DB, author *models.Author) error {
	return r.create(db, author)
}

func (r *authorRepository) GetByID(db *gorm.DB, id uint) (*models.Author, error) {
	var author models.Author
	if err := r.conn(db).First(&author, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *authorRepository) FindByName(db *gorm.DB, first, middle, last string) (*models.Author, error) {
	var author models.Author
	err := r.conn(db).
		Where("first_name = ? AND middle_initial = ? AND last_name = ?", first, middle, last).
		First(&author).Error
	if err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *authorRepository) List(db *gorm.DB, filter AuthorFilter) ([]models.Author, error) {
	q := r.conn(db).Order("id")
	if filter.FirstName != "" {
		q = q.Where("first_name = ?", filter.FirstName)
	}
	if filter.LastName != "" {
		q = q.Where("last_name = ?", filter.LastName)
	}
	var authors []models.Author
	if err := q.Find(&authors).Error; err != nil {
		return nil, err
	}
	return authors, nil
}

func (r *authorRepository) ListByBook(db *gorm.DB, isbn string) ([]models.Author, error) {
	var authors []models.Author
	err := r.conn(db).
		Joins("JOIN "+models.TableWrites+" w ON w.author_id = "+models.TableAuthor+".id").
		Where("w.isbn = ?", isbn).
		Order(models.TableAuthor + ".id").
		Find(&authors).Error
	if err != nil {
		return nil, err
	}
	return authors, nil
}

func (r *authorRepository) Update(db *gorm.DB, id uint, fields map[string]interface{}) error {
	return r.updates(db, &models.Author{}, fields, "id = ?", id)
}

func (r *authorRepository) Delete(db *gorm.DB, id uint) error {
	return r.delete(db, &models.Author{}, "id = ?", id)
}

type publisherRepository struct{ base }

func NewPublisherRepository(db *gorm.DB) PublisherRepository {
	return &publisherRepository{base{db: db}}
}

func (r *publisherRepository) Create(db *gorm.DB, publisher *models.Publisher) error {
	return r.create(db, publisher)
}

func (r *publisherRepository) GetByID(db *gorm.DB, id uint) (*models.Publisher, error) {
	var publisher models.Publisher
	if err := r.conn(db).First(&publisher, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &publisher, nil
}

func (r *publisherRepository) FindByName(db *gorm.DB, name string) (*models.Publisher, error) {
	var publisher models.Publisher
	if err := r.conn(db).Where("name = ?", name).First(&publisher).Error; err != nil {
		return nil, err
	}
	return &publisher, nil
}

func (r *publisherRepository) List(db *gorm.DB) ([]models.Publisher, error) {
	var publishers []models.Publisher
	if err := r.conn(db).Order("id").Find(&publishers).Error; err != nil {
		return nil, err
	}
	return publishers, nil
}

func (r *publisherRepository) Update(db *gorm.DB, id uint, fields map[string]interface{}) error {
	return r.updates(db, &models.Publisher{}, fields, "id = ?", id)
}

func (r *publisherRepository) Delete(db *gorm.DB, id uint) error {
	return r.delete(db, &models.Publisher{}, "id = ?", id)
}

type bookRepository struct{ base }

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{base{db: db}}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	return r.create(db, book)
}

func (r *bookRepository) GetByISBN(db *gorm.DB, isbn string) (*models.Book, error) {
	var book models.Book
	if err := r.conn(db).First(&book, "isbn = ?", isbn).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) List(db *gorm.DB, filter BookFilter) ([]models.Book, error) {
	q := r.conn(db).Order("isbn")
	if filter.Title != "" {
		q = q.Where("title = ?", filter.Title)
	}
	if filter.PublisherID != 0 {
		q = q.Where("publisher_id = ?", filter.PublisherID)
	}
	var books []models.Book
	if err := q.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) ListByAuthor(db *gorm.DB, authorID uint) ([]models.Book, error) {
	var books []models.Book
	err := r.conn(db).
		Joins("JOIN "+models.TableWrites+" w ON w.isbn = "+models.TableBook+".isbn").
		Where("w.author_id = ?", authorID).
		Order(models.TableBook + ".isbn").
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) Update(db *gorm.DB, isbn string, fields map[string]interface{}) error {
	return r.updates(db, &models.Book{}, fields, "isbn = ?", isbn)
}

func (r *bookRepository) Delete(db *gorm.DB, isbn string) error {
	return r.delete(db, &models.Book{}, "isbn = ?", isbn)
}

type writesRepository struct{ base }

func NewWritesRepository(db *gorm.DB) WritesRepository {
	return &writesRepository{base{db: db}}
}

func (r *writesRepository) Create(db *gorm.DB, writes *models.Writes) error {
	return r.create(db, writes)
}

func (r *writesRepository) Get(db *gorm.DB, isbn string, authorID uint) (*models.Writes, error) {
	var w models.Writes
	if err := r.conn(db).First(&w, "isbn = ? AND author_id = ?", isbn, authorID).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *writesRepository) CountByBook(db *gorm.DB, isbn string) (int64, error) {
	var n int64
	err := r.conn(db).Model(&models.Writes{}).Where("isbn = ?", isbn).Count(&n).Error
	return n, err
}

func (r *writesRepository) CountByAuthor(db *gorm.DB, authorID uint) (int64, error) {
	var n int64
	err := r.conn(db).Model(&models.Writes{}).Where("author_id = ?", authorID).Count(&n).Error
	return n, err
}

func (r *writesRepository) Delete(db *gorm.DB, isbn string, authorID uint) error {
	return r.delete(db, &models.Writes{}, "isbn = ? AND author_id = ?", isbn, authorID)
}

func (r *writesRepository) DeleteByBook(db *gorm.DB, isbn string) error {
	return r.conn(db).Where("isbn = ?", isbn).Delete(&models.Writes{}).Error
}

func (r *writesRepository) DeleteByAuthor(db *gorm.DB, authorID uint) error {
	return r.conn(db).Where("author_id = ?", authorID).Delete(&models.Writes{}).Error
}

type copyRepository struct{ base }

func NewCopyRepository(db *gorm.DB) CopyRepository {
	return &copyRepository{base{db: db}}
}

func (r *copyRepository) Create(db *gorm.DB, copy *models.Copy) error {
	return r.create(db, copy)
}

func (r *copyRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Copy, error) {
	var copy models.Copy
	if err := r.conn(db).First(&copy, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &copy, nil
}

func (r *copyRepository) List(db *gorm.DB, filter CopyFilter) ([]models.Copy, error) {
	q := r.conn(db).Order("book_isbn, id")
	if filter.BookISBN != "" {
		q = q.Where("book_isbn = ?", filter.BookISBN)
	}
	var copies []models.Copy
	if err := q.Find(&copies).Error; err != nil {
		return nil, err
	}
	return copies, nil
}

func (r *copyRepository) UpdateBarcodePath(db *gorm.DB, id uuid.UUID, path string) error {
	return r.updates(db, &models.Copy{}, map[string]interface{}{"barcode_path": path}, "id = ?", id)
}

func (r *copyRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	return r.delete(db, &models.Copy{}, "id = ?", id)
}

type patronRepository struct{ base }

func NewPatronRepository(db *gorm.DB) PatronRepository {
	return &patronRepository{base{db: db}}
}

func (r *patronRepository) Create(db *gorm.DB, patron *models.Patron) error {
	return r.create(db, patron)
}

func (r *patronRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Patron, error) {
	var patron models.Patron
	if err := r.conn(db).First(&patron, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &patron, nil
}

func (r *patronRepository) List(db *gorm.DB, filter PatronFilter) ([]models.Patron, error) {
	q := r.conn(db).Order("last_name, first_name, id")
	if filter.Email != "" {
		q = q.Where("email = ?", filter.Email)
	}
	if filter.Phone != "" {
		q = q.Where("phone = ?", filter.Phone)
	}
	var patrons []models.Patron
	if err := q.Find(&patrons).Error; err != nil {
		return nil, err
	}
	return patrons, nil
}

// ExistsWith reports whether another patron already holds value in column
// (email or phone). exclude skips the patron being updated.
func (r *patronRepository) ExistsWith(db *gorm.DB, column, value string, exclude uuid.UUID) (bool, error) {
	var n int64
	q := r.conn(db).Model(&models.Patron{}).Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *patronRepository) Update(db *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	return r.updates(db, &models.Patron{}, fields, "id = ?", id)
}

func (r *patronRepository) UpdateBarcodePath(db *gorm.DB, id uuid.UUID, path string) error {
	return r.updates(db, &models.Patron{}, map[string]interface{}{"barcode_path": path}, "id = ?", id)
}

func (r *patronRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	return r.delete(db, &models.Patron{}, "id = ?", id)
}

type libraryRepository struct{ base }

func NewLibraryRepository(db *gorm.DB) LibraryRepository {
	return &libraryRepository{base{db: db}}
}

func (r *libraryRepository) Create(db *gorm.DB, library *models.Library) error {
	return r.create(db, library)
}

func (r *libraryRepository) GetByID(db *gorm.DB, id uint) (*models.Library, error) {
	var library models.Library
	if err := r.conn(db).First(&library, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &library, nil
}

func (r *libraryRepository) List(db *gorm.DB) ([]models.Library, error) {
	var libraries []models.Library
	if err := r.conn(db).Order("id").Find(&libraries).Error; err != nil {
		return nil, err
	}
	return libraries, nil
}

func (r *libraryRepository) Update(db *gorm.DB, id uint, fields map[string]interface{}) error {
	return r.updates(db, &models.Library{}, fields, "id = ?", id)
}

func (r *libraryRepository) Delete(db *gorm.DB, id uint) error {
	return r.delete(db, &models.Library{}, "id = ?", id)
}

type librarianRepository struct{ base }

func NewLibrarianRepository(db *gorm.DB) LibrarianRepository {
	return &librarianRepository{base{db: db}}
}

func (r *librarianRepository) Create(db *gorm.DB, librarian *models.Librarian) error {
	return r.create(db, librarian)
}

func (r *librarianRepository) GetByID(db *gorm.DB, id uint) (*models.Librarian, error) {
	var librarian models.Librarian
	if err := r.conn(db).First(&librarian, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &librarian, nil
}

func (r *librarianRepository) List(db *gorm.DB, filter LibrarianFilter) ([]models.Librarian, error) {
	q := r.conn(db).Order("id")
	if filter.Username != "" {
		q = q.Where("username = ?", filter.Username)
	}
	var librarians []models.Librarian
	if err := q.Find(&librarians).Error; err != nil {
		return nil, err
	}
	return librarians, nil
}

func (r *librarianRepository) Update(db *gorm.DB, id uint, fields map[string]interface{}) error {
	return r.updates(db, &models.Librarian{}, fields, "id = ?", id)
}

func (r *librarianRepository) Delete(db *gorm.DB, id uint) error {
	return r.delete(db, &models.Librarian{}, "id = ?", id)
}

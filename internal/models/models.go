package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Table names are part of the storage contract and are pinned explicitly.
const (
	TableAuthor    = "author"
	TablePublisher = "publisher"
	TableBook      = "book"
	TableWrites    = "writes"
	TableCopy      = "copy"
	TablePatron    = "patron"
	TableLibrary   = "library"
	TableLibrarian = "librarian"
)

const (
	ISBNMinLength = 10
	ISBNMaxLength = 13
)

// Author names are unique as a triple. A missing middle initial is stored as ""
// so the unique index also covers authors without one.
type Author struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	FirstName     string `gorm:"size:255;not null;uniqueIndex:uq_author_name,priority:1" json:"first_name"`
	MiddleInitial string `gorm:"size:16;not null;default:'';uniqueIndex:uq_author_name,priority:2" json:"middle_initial,omitempty"`
	LastName      string `gorm:"size:255;not null;uniqueIndex:uq_author_name,priority:3" json:"last_name"`
}

func (Author) TableName() string { return TableAuthor }

type Publisher struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:255;not null;uniqueIndex:uq_publisher_name" json:"name"`
}

func (Publisher) TableName() string { return TablePublisher }

type Book struct {
	ISBN        string    `gorm:"primaryKey;size:13" json:"isbn"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Quantity    int       `gorm:"not null;default:1;check:chk_book_quantity,quantity >= 1" json:"quantity"`
	PublisherID uint      `gorm:"not null;index" json:"publisher_id"`
	Publisher   Publisher `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
}

func (Book) TableName() string { return TableBook }

// Writes links a Book to one of its Authors.
type Writes struct {
	BookISBN string `gorm:"column:isbn;primaryKey;size:13" json:"isbn"`
	AuthorID uint   `gorm:"primaryKey" json:"author_id"`
	Book     Book   `gorm:"foreignKey:BookISBN;references:ISBN;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Author   Author `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
}

func (Writes) TableName() string { return TableWrites }

type Copy struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookISBN    string    `gorm:"primaryKey;size:13;index" json:"book_isbn"`
	BarcodePath *string   `json:"barcode_path"`
	Book        Book      `gorm:"foreignKey:BookISBN;references:ISBN;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
}

func (Copy) TableName() string { return TableCopy }

// BeforeCreate assigns a fresh random identifier; an existing one is never replaced.
func (c *Copy) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Patron struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName   string    `gorm:"size:255;not null" json:"first_name"`
	LastName    string    `gorm:"size:255;not null" json:"last_name"`
	Email       string    `gorm:"size:255;not null;uniqueIndex:uq_patron_email" json:"email"`
	Phone       string    `gorm:"size:32;not null;uniqueIndex:uq_patron_phone" json:"phone"`
	BarcodePath *string   `json:"barcode_path"`
}

func (Patron) TableName() string { return TablePatron }

func (p *Patron) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type Library struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:255;not null" json:"name"`
	Timezone string `gorm:"size:64;not null" json:"timezone"`
}

func (Library) TableName() string { return TableLibrary }

type Librarian struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:255;not null" json:"username"`
	HashedPW string `gorm:"column:hashed_pw;not null" json:"-"`
	IsAdmin  bool   `gorm:"not null" json:"is_admin"`
}

func (Librarian) TableName() string { return TableLibrarian }

// All lists every model in foreign-key dependency order.
func All() []interface{} {
	return []interface{}{
		&Publisher{},
		&Author{},
		&Book{},
		&Writes{},
		&Copy{},
		&Patron{},
		&Library{},
		&Librarian{},
	}
}

package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"xenith/internal/models"
	"xenith/internal/repositories"
)

// ErrInvalidPassword is returned by VerifyLibrarianPassword on a mismatch.
var ErrInvalidPassword = errors.New("invalid password")

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

type LibraryInput struct {
	Name     string
	Timezone string
}

type LibraryUpdate struct {
	Name     *string
	Timezone *string
}

type LibrarianInput struct {
	Username string
	Password string
	IsAdmin  bool
}

type LibrarianUpdate struct {
	Username *string
	Password *string
	IsAdmin  *bool
}

// AdminService manages the standalone administrative records: library
// branches and librarian accounts.
type AdminService interface {
	CreateLibrary(ctx context.Context, in LibraryInput) (*models.Library, error)
	GetLibrary(ctx context.Context, id uint) (*models.Library, error)
	ListLibraries(ctx context.Context) ([]models.Library, error)
	UpdateLibrary(ctx context.Context, id uint, in LibraryUpdate) (*models.Library, error)
	DeleteLibrary(ctx context.Context, id uint) error

	CreateLibrarian(ctx context.Context, in LibrarianInput) (*models.Librarian, error)
	GetLibrarian(ctx context.Context, id uint) (*models.Librarian, error)
	ListLibrarians(ctx context.Context, filter repositories.LibrarianFilter) ([]models.Librarian, error)
	UpdateLibrarian(ctx context.Context, id uint, in LibrarianUpdate) (*models.Librarian, error)
	DeleteLibrarian(ctx context.Context, id uint) error
	VerifyLibrarianPassword(ctx context.Context, id uint, password string) error
}

type adminService struct {
	db            *gorm.DB
	log           *slog.Logger
	bcryptCost    int
	libraryRepo   repositories.LibraryRepository
	librarianRepo repositories.LibrarianRepository
}

func NewAdminService(db *gorm.DB, bcryptCost int, log *slog.Logger) AdminService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &adminService{
		db:            db,
		log:           log.With("service", "admin"),
		bcryptCost:    bcryptCost,
		libraryRepo:   repositories.NewLibraryRepository(db),
		librarianRepo: repositories.NewLibrarianRepository(db),
	}
}

// ─── Libraries ────────────────────────────────────────────────────────────────

func (s *adminService) CreateLibrary(ctx context.Context, in LibraryInput) (*models.Library, error) {
	library := &models.Library{
		Name:     strings.TrimSpace(in.Name),
		Timezone: strings.TrimSpace(in.Timezone),
	}
	if err := requireField("library", "name", library.Name); err != nil {
		return nil, err
	}
	if err := validateTimezone(library.Timezone); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.libraryRepo.Create(tx, library)
	})
	if err != nil {
		s.log.Error("create library failed", "name", library.Name, "error", err)
		return nil, translate("create library", "library", nil, err)
	}
	s.log.Info("library created", "id", library.ID, "name", library.Name)
	return library, nil
}

func (s *adminService) GetLibrary(ctx context.Context, id uint) (*models.Library, error) {
	library, err := s.libraryRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, translate("get library", "library", id, err)
	}
	return library, nil
}

func (s *adminService) ListLibraries(ctx context.Context) ([]models.Library, error) {
	libraries, err := s.libraryRepo.List(s.db.WithContext(ctx))
	if err != nil {
		return nil, translate("list libraries", "library", nil, err)
	}
	return libraries, nil
}

func (s *adminService) UpdateLibrary(ctx context.Context, id uint, in LibraryUpdate) (*models.Library, error) {
	var updated *models.Library
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		library, err := s.libraryRepo.GetByID(tx, id)
		if err != nil {
			return err
		}
		if v := trimmed(in.Name); v != nil {
			library.Name = *v
		}
		if v := trimmed(in.Timezone); v != nil {
			library.Timezone = *v
		}
		if err := requireField("library", "name", library.Name); err != nil {
			return err
		}
		if err := validateTimezone(library.Timezone); err != nil {
			return err
		}
		if err := s.libraryRepo.Update(tx, id, map[string]interface{}{
			"name":     library.Name,
			"timezone": library.Timezone,
		}); err != nil {
			return err
		}
		updated = library
		return nil
	})
	if err != nil {
		return nil, translate("update library", "library", id, err)
	}
	s.log.Info("library updated", "id", id)
	return updated, nil
}

func (s *adminService) DeleteLibrary(ctx context.Context, id uint) error {
	if err := s.libraryRepo.Delete(s.db.WithContext(ctx), id); err != nil {
		return translate("delete library", "library", id, err)
	}
	s.log.Info("library deleted", "id", id)
	return nil
}

// ─── Librarians ───────────────────────────────────────────────────────────────

func (s *adminService) CreateLibrarian(ctx context.Context, in LibrarianInput) (*models.Librarian, error) {
	librarian := &models.Librarian{
		Username: strings.TrimSpace(in.Username),
		IsAdmin:  in.IsAdmin,
	}
	if err := requireField("librarian", "username", librarian.Username); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	librarian.HashedPW = hash

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.librarianRepo.Create(tx, librarian)
	})
	if err != nil {
		s.log.Error("create librarian failed", "username", librarian.Username, "error", err)
		return nil, translate("create librarian", "librarian", nil, err)
	}
	s.log.Info("librarian created", "id", librarian.ID, "username", librarian.Username, "is_admin", librarian.IsAdmin)
	return librarian, nil
}

func (s *adminService) GetLibrarian(ctx context.Context, id uint) (*models.Librarian, error) {
	librarian, err := s.librarianRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, translate("get librarian", "librarian", id, err)
	}
	return librarian, nil
}

func (s *adminService) ListLibrarians(ctx context.Context, filter repositories.LibrarianFilter) ([]models.Librarian, error) {
	librarians, err := s.librarianRepo.List(s.db.WithContext(ctx), filter)
	if err != nil {
		return nil, translate("list librarians", "librarian", nil, err)
	}
	return librarians, nil
}

func (s *adminService) UpdateLibrarian(ctx context.Context, id uint, in LibrarianUpdate) (*models.Librarian, error) {
	var updated *models.Librarian
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		librarian, err := s.librarianRepo.GetByID(tx, id)
		if err != nil {
			return err
		}
		fields := map[string]interface{}{}
		if v := trimmed(in.Username); v != nil {
			if err := requireField("librarian", "username", *v); err != nil {
				return err
			}
			librarian.Username = *v
			fields["username"] = *v
		}
		if in.Password != nil {
			hash, err := s.hashPassword(*in.Password)
			if err != nil {
				return err
			}
			librarian.HashedPW = hash
			fields["hashed_pw"] = hash
		}
		if in.IsAdmin != nil {
			librarian.IsAdmin = *in.IsAdmin
			fields["is_admin"] = *in.IsAdmin
		}
		if len(fields) > 0 {
			if err := s.librarianRepo.Update(tx, id, fields); err != nil {
				return err
			}
		}
		updated = librarian
		return nil
	})
	if err != nil {
		return nil, translate("update librarian", "librarian", id, err)
	}
	s.log.Info("librarian updated", "id", id)
	return updated, nil
}

func (s *adminService) DeleteLibrarian(ctx context.Context, id uint) error {
	if err := s.librarianRepo.Delete(s.db.WithContext(ctx), id); err != nil {
		return translate("delete librarian", "librarian", id, err)
	}
	s.log.Info("librarian deleted", "id", id)
	return nil
}

func (s *adminService) VerifyLibrarianPassword(ctx context.Context, id uint, password string) error {
	librarian, err := s.librarianRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return translate("verify librarian password", "librarian", id, err)
	}
	err = bcrypt.CompareHashAndPassword([]byte(librarian.HashedPW), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidPassword
	}
	return err
}

func (s *adminService) hashPassword(password string) (string, error) {
	if password == "" {
		return "", invalid("librarian.hashed_pw", "password is required")
	}
	if len(password) > maxPasswordBytes {
		return "", invalid("librarian.hashed_pw", "password exceeds 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

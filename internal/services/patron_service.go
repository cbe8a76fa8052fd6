package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"xenith/internal/barcode"
	"xenith/internal/models"
	"xenith/internal/repositories"
)

type PatronInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type PatronUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
}

// PatronService manages library members and their card barcodes.
type PatronService interface {
	CreatePatron(ctx context.Context, in PatronInput) (*models.Patron, error)
	GetPatron(ctx context.Context, id uuid.UUID) (*models.Patron, error)
	ListPatrons(ctx context.Context, filter repositories.PatronFilter) ([]models.Patron, error)
	UpdatePatron(ctx context.Context, id uuid.UUID, in PatronUpdate) (*models.Patron, error)
	RegeneratePatronBarcode(ctx context.Context, id uuid.UUID) (*models.Patron, error)
	DeletePatron(ctx context.Context, id uuid.UUID) error
}

type patronService struct {
	db         *gorm.DB
	log        *slog.Logger
	barcodes   BarcodeGenerator
	patronRepo repositories.PatronRepository
}

func NewPatronService(db *gorm.DB, barcodes BarcodeGenerator, log *slog.Logger) PatronService {
	return &patronService{
		db:         db,
		log:        log.With("service", "patron"),
		barcodes:   barcodes,
		patronRepo: repositories.NewPatronRepository(db),
	}
}

// CreatePatron stores the patron, renders the card barcode and records its
// path in the same unit of work.
func (s *patronService) CreatePatron(ctx context.Context, in PatronInput) (*models.Patron, error) {
	patron := &models.Patron{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
	}
	if err := validatePatron(patron); err != nil {
		return nil, err
	}

	var written string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureContactFree(tx, patron, uuid.Nil); err != nil {
			return err
		}
		if err := s.patronRepo.Create(tx, patron); err != nil {
			return err
		}
		path, err := s.barcodes.Generate(patron.ID, barcode.CategoryPatron)
		if err != nil {
			return err
		}
		written = path
		if err := s.patronRepo.UpdateBarcodePath(tx, patron.ID, path); err != nil {
			return err
		}
		patron.BarcodePath = &path
		return nil
	})
	if err != nil {
		if written != "" {
			if rmErr := s.barcodes.Remove(written); rmErr != nil {
				s.log.Warn("failed to remove barcode image", "path", written, "error", rmErr)
			}
		}
		s.log.Error("create patron failed", "email", patron.Email, "error", err)
		return nil, translate("create patron", "patron", nil, err)
	}
	s.log.Info("patron created", "id", patron.ID, "barcode", written)
	return patron, nil
}

func (s *patronService) GetPatron(ctx context.Context, id uuid.UUID) (*models.Patron, error) {
	patron, err := s.patronRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, translate("get patron", "patron", id, err)
	}
	return patron, nil
}

func (s *patronService) ListPatrons(ctx context.Context, filter repositories.PatronFilter) ([]models.Patron, error) {
	patrons, err := s.patronRepo.List(s.db.WithContext(ctx), filter)
	if err != nil {
		return nil, translate("list patrons", "patron", nil, err)
	}
	return patrons, nil
}

func (s *patronService) UpdatePatron(ctx context.Context, id uuid.UUID, in PatronUpdate) (*models.Patron, error) {
	var updated *models.Patron
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		patron, err := s.patronRepo.GetByID(tx, id)
		if err != nil {
			return err
		}
		if v := trimmed(in.FirstName); v != nil {
			patron.FirstName = *v
		}
		if v := trimmed(in.LastName); v != nil {
			patron.LastName = *v
		}
		if v := trimmed(in.Email); v != nil {
			patron.Email = *v
		}
		if v := trimmed(in.Phone); v != nil {
			patron.Phone = *v
		}
		if err := validatePatron(patron); err != nil {
			return err
		}
		if err := s.ensureContactFree(tx, patron, id); err != nil {
			return err
		}
		if err := s.patronRepo.Update(tx, id, map[string]interface{}{
			"first_name": patron.FirstName,
			"last_name":  patron.LastName,
			"email":      patron.Email,
			"phone":      patron.Phone,
		}); err != nil {
			return err
		}
		updated = patron
		return nil
	})
	if err != nil {
		return nil, translate("update patron", "patron", id, err)
	}
	s.log.Info("patron updated", "id", id)
	return updated, nil
}

func (s *patronService) RegeneratePatronBarcode(ctx context.Context, id uuid.UUID) (*models.Patron, error) {
	var updated *models.Patron
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		patron, err := s.patronRepo.GetByID(tx, id)
		if err != nil {
			return err
		}
		path, err := s.barcodes.Generate(patron.ID, barcode.CategoryPatron)
		if err != nil {
			return err
		}
		if err := s.patronRepo.UpdateBarcodePath(tx, patron.ID, path); err != nil {
			return err
		}
		patron.BarcodePath = &path
		updated = patron
		return nil
	})
	if err != nil {
		return nil, translate("regenerate patron barcode", "patron", id, err)
	}
	return updated, nil
}

func (s *patronService) DeletePatron(ctx context.Context, id uuid.UUID) error {
	var path *string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		patron, err := s.patronRepo.GetByID(tx, id)
		if err != nil {
			return err
		}
		path = patron.BarcodePath
		return s.patronRepo.Delete(tx, id)
	})
	if err != nil {
		return translate("delete patron", "patron", id, err)
	}
	if path != nil {
		if err := s.barcodes.Remove(*path); err != nil {
			s.log.Warn("failed to remove barcode image", "path", *path, "error", err)
		}
	}
	s.log.Info("patron deleted", "id", id)
	return nil
}

func validatePatron(p *models.Patron) error {
	fields := []struct{ name, value string }{
		{"first_name", p.FirstName},
		{"last_name", p.LastName},
		{"email", p.Email},
		{"phone", p.Phone},
	}
	for _, f := range fields {
		if err := requireField("patron", f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

// ensureContactFree enforces email and phone uniqueness across patrons other than self.
func (s *patronService) ensureContactFree(tx *gorm.DB, p *models.Patron, self uuid.UUID) error {
	taken, err := s.patronRepo.ExistsWith(tx, "email", p.Email, self)
	if err != nil {
		return err
	}
	if taken {
		return conflict("uq_patron_email", "email is already registered")
	}
	taken, err = s.patronRepo.ExistsWith(tx, "phone", p.Phone, self)
	if err != nil {
		return err
	}
	if taken {
		return conflict("uq_patron_phone", "phone is already registered")
	}
	return nil
}

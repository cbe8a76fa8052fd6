package services

import (
	"fmt"
	"strings"
	"time"

	"xenith/internal/models"
)

func requireField(entity, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(entity+"."+field, field+" is required")
	}
	return nil
}

func validateISBN(isbn string) error {
	if n := len(isbn); n < models.ISBNMinLength || n > models.ISBNMaxLength {
		return invalid("book.isbn", fmt.Sprintf("isbn must be %d to %d characters, got %d",
			models.ISBNMinLength, models.ISBNMaxLength, n))
	}
	return nil
}

func validateQuantity(qty int) error {
	if qty < 1 {
		return invalid("chk_book_quantity", fmt.Sprintf("quantity must be at least 1, got %d", qty))
	}
	return nil
}

func validateTimezone(tz string) error {
	if err := requireField("library", "timezone", tz); err != nil {
		return err
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return invalid("library.timezone", fmt.Sprintf("unknown timezone %q", tz))
	}
	return nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	return &s
}

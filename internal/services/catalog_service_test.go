package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"xenith/internal/barcode"
	"xenith/internal/models"
	"xenith/internal/repositories"
)

func seedBook(t *testing.T, env *testEnv, isbn string) (*models.Publisher, *models.Book) {
	t.Helper()
	ctx := context.Background()
	publisher, err := env.catalog.CreatePublisher(ctx, "Publisher "+isbn)
	require.NoError(t, err)
	book, err := env.catalog.CreateBook(ctx, BookInput{ISBN: isbn, Title: "Title " + isbn, PublisherID: publisher.ID})
	require.NoError(t, err)
	return publisher, book
}

func TestCatalog_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.catalog.CreatePublisher(ctx, "Acme")
	require.NoError(t, err)
	b, err := env.catalog.CreateBook(ctx, BookInput{ISBN: "1234567890", Title: "T", PublisherID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Quantity)

	a, err := env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Jane", MiddleInitial: "Q", LastName: "Doe"})
	require.NoError(t, err)
	_, err = env.catalog.LinkAuthor(ctx, b.ISBN, a.ID)
	require.NoError(t, err)

	c, err := env.catalog.CreateCopy(ctx, b.ISBN)
	require.NoError(t, err)
	assert.Equal(t, b.ISBN, c.BookISBN)

	copies, err := env.catalog.ListCopiesForBook(ctx, b.ISBN)
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.Equal(t, c.ID, copies[0].ID)

	err = env.catalog.DeleteBook(ctx, b.ISBN, false)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	// nothing was removed by the failed delete
	_, err = env.catalog.GetBook(ctx, b.ISBN)
	require.NoError(t, err)
	_, err = env.catalog.GetCopy(ctx, c.ID)
	require.NoError(t, err)
}

func TestCreateAuthor_DuplicateTripleRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	name := rapid.StringMatching(`[A-Z][a-z]{0,12}`)

	rapid.Check(t, func(rt *rapid.T) {
		in := AuthorInput{
			FirstName:     name.Draw(rt, "first"),
			MiddleInitial: rapid.SampledFrom([]string{"", "A", "Q", "Z"}).Draw(rt, "middle"),
			LastName:      name.Draw(rt, "last"),
		}

		// The triple may already exist from an earlier draw; either way the
		// second insert must be rejected.
		if _, err := env.catalog.CreateAuthor(ctx, in); err != nil && !assert.ErrorIs(rt, err, ErrConstraintViolation) {
			rt.FailNow()
		}
		_, err := env.catalog.CreateAuthor(ctx, in)
		if !assert.ErrorIs(rt, err, ErrConstraintViolation) {
			rt.FailNow()
		}
	})
}

func TestCreateAuthor_WithoutMiddleInitialIsUnique(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Ursula", LastName: "Le Guin"})
	require.NoError(t, err)
	_, err = env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Ursula", LastName: "Le Guin"})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	_, err = env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Ursula", MiddleInitial: "K", LastName: "Le Guin"})
	assert.NoError(t, err)
}

func TestCreateAuthor_RequiredFields(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.catalog.CreateAuthor(context.Background(), AuthorInput{FirstName: "  ", LastName: "Doe"})

	assert.ErrorIs(t, err, ErrConstraintViolation)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestUpdateAuthor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)
	_, err = env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "John", LastName: "Doe"})
	require.NoError(t, err)

	t.Run("renames", func(t *testing.T) {
		updated, err := env.catalog.UpdateAuthor(ctx, a.ID, AuthorUpdate{MiddleInitial: strPtr("Q")})
		require.NoError(t, err)
		assert.Equal(t, "Q", updated.MiddleInitial)

		got, err := env.catalog.GetAuthor(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "Q", got.MiddleInitial)
	})

	t.Run("collision with another author", func(t *testing.T) {
		_, err := env.catalog.UpdateAuthor(ctx, a.ID, AuthorUpdate{FirstName: strPtr("John"), MiddleInitial: strPtr("")})
		assert.ErrorIs(t, err, ErrConstraintViolation)
	})

	t.Run("missing author", func(t *testing.T) {
		_, err := env.catalog.UpdateAuthor(ctx, 9999, AuthorUpdate{FirstName: strPtr("X")})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteAuthor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, book := seedBook(t, env, "9780000000001")

	a, err := env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)
	_, err = env.catalog.LinkAuthor(ctx, book.ISBN, a.ID)
	require.NoError(t, err)

	err = env.catalog.DeleteAuthor(ctx, a.ID, false)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	require.NoError(t, env.catalog.DeleteAuthor(ctx, a.ID, true))

	authors, err := env.catalog.ListAuthorsForBook(ctx, book.ISBN)
	require.NoError(t, err)
	assert.Empty(t, authors)

	assert.ErrorIs(t, env.catalog.DeleteAuthor(ctx, a.ID, false), ErrNotFound)
}

func TestPublisher_NameUnique(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acme, err := env.catalog.CreatePublisher(ctx, "Acme")
	require.NoError(t, err)
	_, err = env.catalog.CreatePublisher(ctx, "Acme")
	assert.ErrorIs(t, err, ErrConstraintViolation)

	other, err := env.catalog.CreatePublisher(ctx, "Globex")
	require.NoError(t, err)
	_, err = env.catalog.UpdatePublisher(ctx, other.ID, "Acme")
	assert.ErrorIs(t, err, ErrConstraintViolation)

	same, err := env.catalog.UpdatePublisher(ctx, acme.ID, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", same.Name)
}

func TestDeletePublisher(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	publisher, book := seedBook(t, env, "9780000000002")
	c, err := env.catalog.CreateCopy(ctx, book.ISBN)
	require.NoError(t, err)

	err = env.catalog.DeletePublisher(ctx, publisher.ID, false)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	require.NoError(t, env.catalog.DeletePublisher(ctx, publisher.ID, true))

	_, err = env.catalog.GetBook(ctx, book.ISBN)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = os.Stat(*c.BarcodePath)
	assert.True(t, os.IsNotExist(err), "copy barcode removed with its book")
}

func TestCreateBook_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	publisher, err := env.catalog.CreatePublisher(ctx, "Acme")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   BookInput
	}{
		{"zero quantity", BookInput{ISBN: "1234567890", Title: "T", Quantity: intPtr(0), PublisherID: publisher.ID}},
		{"negative quantity", BookInput{ISBN: "1234567890", Title: "T", Quantity: intPtr(-3), PublisherID: publisher.ID}},
		{"short isbn", BookInput{ISBN: "123456789", Title: "T", PublisherID: publisher.ID}},
		{"long isbn", BookInput{ISBN: "12345678901234", Title: "T", PublisherID: publisher.ID}},
		{"empty title", BookInput{ISBN: "1234567890", Title: "", PublisherID: publisher.ID}},
		{"no publisher", BookInput{ISBN: "1234567890", Title: "T"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.catalog.CreateBook(ctx, tt.in)
			assert.ErrorIs(t, err, ErrConstraintViolation)
			assert.ErrorIs(t, err, ErrInvalidField)
		})
	}

	books, err := env.catalog.ListBooks(ctx, repositories.BookFilter{})
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestCreateBook_QuantityBelowOneAlwaysRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, book := seedBook(t, env, "9780000000003")

	rapid.Check(t, func(rt *rapid.T) {
		qty := rapid.IntRange(-1000, 0).Draw(rt, "qty")

		_, err := env.catalog.CreateBook(ctx, BookInput{ISBN: "9780000000099", Title: "T", Quantity: &qty, PublisherID: book.PublisherID})
		if !assert.ErrorIs(rt, err, ErrConstraintViolation) {
			rt.FailNow()
		}
		_, err = env.catalog.UpdateBook(ctx, book.ISBN, BookUpdate{Quantity: &qty})
		if !assert.ErrorIs(rt, err, ErrConstraintViolation) {
			rt.FailNow()
		}
	})

	got, err := env.catalog.GetBook(ctx, book.ISBN)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)
}

func TestCreateBook_UnknownPublisher(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.catalog.CreateBook(context.Background(), BookInput{ISBN: "1234567890", Title: "T", PublisherID: 42})

	assert.ErrorIs(t, err, ErrConstraintViolation)
	assert.NotErrorIs(t, err, ErrInvalidField)
}

func TestCreateBook_DuplicateISBN(t *testing.T) {
	env := newTestEnv(t)
	publisher, _ := seedBook(t, env, "1234567890")

	_, err := env.catalog.CreateBook(context.Background(), BookInput{ISBN: "1234567890", Title: "Other", PublisherID: publisher.ID})

	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestUpdateBook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, book := seedBook(t, env, "9780000000004")
	other, err := env.catalog.CreatePublisher(ctx, "Other House")
	require.NoError(t, err)

	updated, err := env.catalog.UpdateBook(ctx, book.ISBN, BookUpdate{
		Title:       strPtr("New Title"),
		Quantity:    intPtr(5),
		PublisherID: uintPtr(other.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, 5, updated.Quantity)

	publisher, err := env.catalog.GetPublisherForBook(ctx, book.ISBN)
	require.NoError(t, err)
	assert.Equal(t, other.ID, publisher.ID)

	_, err = env.catalog.UpdateBook(ctx, book.ISBN, BookUpdate{PublisherID: uintPtr(777)})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	_, err = env.catalog.UpdateBook(ctx, "0000000000", BookUpdate{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBook_Cascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, book := seedBook(t, env, "9780000000005")

	a, err := env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)
	_, err = env.catalog.LinkAuthor(ctx, book.ISBN, a.ID)
	require.NoError(t, err)
	c, err := env.catalog.CreateCopy(ctx, book.ISBN)
	require.NoError(t, err)

	require.NoError(t, env.catalog.DeleteBook(ctx, book.ISBN, true))

	_, err = env.catalog.GetCopy(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	books, err := env.catalog.ListBooksForAuthor(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, books)
	_, err = os.Stat(*c.BarcodePath)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, env.catalog.DeleteBook(ctx, book.ISBN, true), ErrNotFound)
}

func TestDeleteBook_LinkedAuthorBlocks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, book := seedBook(t, env, "9780000000006")
	a, err := env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)
	_, err = env.catalog.LinkAuthor(ctx, book.ISBN, a.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, env.catalog.DeleteBook(ctx, book.ISBN, false), ErrConstraintViolation)

	require.NoError(t, env.catalog.UnlinkAuthor(ctx, book.ISBN, a.ID))
	assert.NoError(t, env.catalog.DeleteBook(ctx, book.ISBN, false))
}

func TestLinkAuthor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, book := seedBook(t, env, "9780000000007")
	jane, err := env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)
	john, err := env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "John", LastName: "Roe"})
	require.NoError(t, err)

	_, err = env.catalog.LinkAuthor(ctx, book.ISBN, jane.ID)
	require.NoError(t, err)
	_, err = env.catalog.LinkAuthor(ctx, book.ISBN, john.ID)
	require.NoError(t, err)

	t.Run("twice", func(t *testing.T) {
		_, err := env.catalog.LinkAuthor(ctx, book.ISBN, jane.ID)
		assert.ErrorIs(t, err, ErrConstraintViolation)
	})
	t.Run("missing book", func(t *testing.T) {
		_, err := env.catalog.LinkAuthor(ctx, "0000000000", jane.ID)
		assert.ErrorIs(t, err, ErrConstraintViolation)
	})
	t.Run("missing author", func(t *testing.T) {
		_, err := env.catalog.LinkAuthor(ctx, book.ISBN, 9999)
		assert.ErrorIs(t, err, ErrConstraintViolation)
	})
	t.Run("navigation", func(t *testing.T) {
		authors, err := env.catalog.ListAuthorsForBook(ctx, book.ISBN)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint{jane.ID, john.ID}, []uint{authors[0].ID, authors[1].ID})

		books, err := env.catalog.ListBooksForAuthor(ctx, jane.ID)
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, book.ISBN, books[0].ISBN)
	})
	t.Run("unlink missing", func(t *testing.T) {
		err := env.catalog.UnlinkAuthor(ctx, book.ISBN, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCreateCopy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, book := seedBook(t, env, "9780000000008")

	c, err := env.catalog.CreateCopy(ctx, book.ISBN)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, c.ID)
	require.NotNil(t, c.BarcodePath)

	want := filepath.Join(env.root, "copy_barcodes", "copy_"+c.ID.String()+".png")
	assert.Equal(t, want, *c.BarcodePath)
	_, err = os.Stat(want)
	assert.NoError(t, err)

	stored, err := env.catalog.GetCopy(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, want, *stored.BarcodePath)

	owner, err := env.catalog.GetBookForCopy(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, book.ISBN, owner.ISBN)
}

func TestCreateCopy_IdentifiersNeverRepeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, book := seedBook(t, env, "9780000000009")

	seen := map[uuid.UUID]bool{}
	for i := 0; i < 25; i++ {
		c, err := env.catalog.CreateCopy(ctx, book.ISBN)
		require.NoError(t, err)
		assert.False(t, seen[c.ID], "identifier %s reused", c.ID)
		seen[c.ID] = true
	}

	copies, err := env.catalog.ListCopies(ctx, repositories.CopyFilter{BookISBN: book.ISBN})
	require.NoError(t, err)
	assert.Len(t, copies, 25)
}

func TestCreateCopy_UnknownBook(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.catalog.CreateCopy(context.Background(), "0000000000")

	assert.ErrorIs(t, err, ErrConstraintViolation)
	_, statErr := os.Stat(filepath.Join(env.root, "copy_barcodes"))
	assert.True(t, os.IsNotExist(statErr), "no barcode rendered for a rejected copy")
}

func TestCreateCopy_BarcodeFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, book := seedBook(t, env, "9780000000010")
	catalog := NewCatalogService(env.db, failingBarcodes{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := catalog.CreateCopy(ctx, book.ISBN)

	assert.ErrorIs(t, err, barcode.ErrEncoding)
	copies, err := catalog.ListCopiesForBook(ctx, book.ISBN)
	require.NoError(t, err)
	assert.Empty(t, copies)
}

func TestDeleteCopy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, book := seedBook(t, env, "9780000000011")
	c, err := env.catalog.CreateCopy(ctx, book.ISBN)
	require.NoError(t, err)

	regenerated, err := env.catalog.RegenerateCopyBarcode(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, *c.BarcodePath, *regenerated.BarcodePath)

	require.NoError(t, env.catalog.DeleteCopy(ctx, c.ID))
	_, err = os.Stat(*c.BarcodePath)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, env.catalog.DeleteCopy(ctx, c.ID), ErrNotFound)
	require.NoError(t, env.catalog.DeleteBook(ctx, book.ISBN, false))
}

func TestNavigation_MissingParents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.catalog.ListCopiesForBook(ctx, "0000000000")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.catalog.ListAuthorsForBook(ctx, "0000000000")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.catalog.ListBooksForAuthor(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.catalog.ListBooksForPublisher(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.catalog.GetBookForCopy(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFilters_ExactMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)
	_, err = env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Jane", LastName: "Doer"})
	require.NoError(t, err)

	authors, err := env.catalog.ListAuthors(ctx, repositories.AuthorFilter{LastName: "Doe"})
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, "Doe", authors[0].LastName)

	authors, err = env.catalog.ListAuthors(ctx, repositories.AuthorFilter{LastName: "Do"})
	require.NoError(t, err)
	assert.Empty(t, authors)
}

func TestBook_PaddedISBNIsTrimmedEverywhere(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	publisher, err := env.catalog.CreatePublisher(ctx, "Acme")
	require.NoError(t, err)
	a, err := env.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)

	const padded = "  1234567890 "
	book, err := env.catalog.CreateBook(ctx, BookInput{ISBN: padded, Title: "T", PublisherID: publisher.ID})
	require.NoError(t, err)
	assert.Equal(t, "1234567890", book.ISBN)

	_, err = env.catalog.GetBook(ctx, padded)
	require.NoError(t, err)
	_, err = env.catalog.UpdateBook(ctx, padded, BookUpdate{Quantity: intPtr(2)})
	require.NoError(t, err)
	_, err = env.catalog.GetPublisherForBook(ctx, padded)
	require.NoError(t, err)

	link, err := env.catalog.LinkAuthor(ctx, padded, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "1234567890", link.BookISBN)
	authors, err := env.catalog.ListAuthorsForBook(ctx, padded)
	require.NoError(t, err)
	assert.Len(t, authors, 1)
	require.NoError(t, env.catalog.UnlinkAuthor(ctx, padded, a.ID))

	_, err = env.catalog.CreateCopy(ctx, padded)
	require.NoError(t, err)
	copies, err := env.catalog.ListCopiesForBook(ctx, padded)
	require.NoError(t, err)
	assert.Len(t, copies, 1)

	require.NoError(t, env.catalog.DeleteBook(ctx, padded, true))
}

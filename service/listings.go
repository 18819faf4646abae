package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kevinaaaquil/bookswap/events"
	"github.com/kevinaaaquil/bookswap/logger"
	"github.com/kevinaaaquil/bookswap/models"
	"github.com/kevinaaaquil/bookswap/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

//go:generate mockgen -source=listings.go -destination=mock_listings.go -package=service

// BookStore is the persistence the listings component needs.
type BookStore interface {
	InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error)
	AllBooks(ctx context.Context) ([]models.Book, error)
	BooksByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Book, error)
	BookForOwner(ctx context.Context, id, owner primitive.ObjectID) (*models.Book, error)
	UpdateBookForOwner(ctx context.Context, id, owner primitive.ObjectID, patch models.BookPatch) (*models.Book, error)
	DeleteBookForOwner(ctx context.Context, id, owner primitive.ObjectID) (bool, error)
	IncrementLikes(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
}

// ImageStore uploads covers to the image host and removes them by handle.
type ImageStore interface {
	Upload(ctx context.Context, data []byte) (models.Image, error)
	Delete(ctx context.Context, handle string) error
}

type ContactInput struct {
	Platform string `json:"platform" validate:"required,max=30"`
	Handle   string `json:"handle" validate:"required,max=100"`
}

// CreateBookInput holds a new listing. Image is the raw cover payload.
type CreateBookInput struct {
	Title       string       `json:"title" validate:"required,max=200"`
	Author      string       `json:"author" validate:"required,max=100"`
	Genre       string       `json:"genre" validate:"required,max=50"`
	Condition   string       `json:"condition" validate:"required,oneof=new like-new good fair poor"`
	Description string       `json:"description" validate:"required,max=2000"`
	Contact     ContactInput `json:"contact"`
	Image       []byte       `json:"-" validate:"-"`
}

type ContactPatchInput struct {
	Platform *string `json:"platform" validate:"omitempty,min=1,max=30"`
	Handle   *string `json:"handle" validate:"omitempty,min=1,max=100"`
}

// UpdateBookInput is the set of fields an owner may change. Anything else in a request
// body is ignored.
type UpdateBookInput struct {
	Title       *string            `json:"title" validate:"omitempty,min=1,max=200"`
	Author      *string            `json:"author" validate:"omitempty,min=1,max=100"`
	Genre       *string            `json:"genre" validate:"omitempty,min=1,max=50"`
	Condition   *string            `json:"condition" validate:"omitempty,oneof=new like-new good fair poor"`
	Description *string            `json:"description" validate:"omitempty,min=1,max=2000"`
	Contact     *ContactPatchInput `json:"contact"`
}

// Listings manages book listings and their cover images.
type Listings struct {
	books  BookStore
	images ImageStore
	events events.Publisher
	now    func() time.Time
}

func NewListings(books BookStore, images ImageStore, publisher events.Publisher) *Listings {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Listings{books: books, images: images, events: publisher, now: time.Now}
}

func sanitizePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := utils.SanitizeText(*p)
	return &v
}

func sanitizeBook(in *CreateBookInput) {
	in.Title = utils.SanitizeText(in.Title)
	in.Author = utils.SanitizeText(in.Author)
	in.Genre = utils.SanitizeText(in.Genre)
	in.Condition = strings.ToLower(utils.SanitizeText(in.Condition))
	in.Description = utils.SanitizeText(in.Description)
	in.Contact.Platform = utils.SanitizeText(in.Contact.Platform)
	in.Contact.Handle = utils.SanitizeText(in.Contact.Handle)
}

func validateBook(in CreateBookInput, hasImage bool) error {
	err := check(in)
	if !hasImage {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			verr = &ValidationError{Fields: map[string]string{}}
		}
		verr.Fields["image"] = "image is required"
		err = verr
	}
	return err
}

// ValidateFields checks a new listing without its cover payload. hasImage reports whether
// the request carries an image at all. Callers use it to reject a request before
// fetching or decoding the image.
func (l *Listings) ValidateFields(in CreateBookInput, hasImage bool) error {
	sanitizeBook(&in)
	return validateBook(in, hasImage)
}

// Create validates the listing, uploads its cover and stores it with zero likes.
func (l *Listings) Create(ctx context.Context, owner primitive.ObjectID, in CreateBookInput) (*models.Book, error) {
	sanitizeBook(&in)
	if err := validateBook(in, len(in.Image) > 0); err != nil {
		return nil, err
	}

	img, err := l.images.Upload(ctx, in.Image)
	if errors.Is(err, ErrUnsupportedImage) {
		return nil, invalid("image", "image must be a JPEG, PNG, GIF, BMP or TIFF picture")
	}
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	book := &models.Book{
		Title:       in.Title,
		Author:      in.Author,
		Genre:       in.Genre,
		Condition:   in.Condition,
		Description: in.Description,
		Image:       img,
		Contact:     models.Contact{Platform: in.Contact.Platform, Handle: in.Contact.Handle},
		UserID:      owner,
		CreatedAt:   l.now().UTC(),
		Likes:       0,
	}
	id, err := l.books.InsertBook(ctx, book)
	if err != nil {
		l.deleteImage(ctx, img.DeleteHandle)
		return nil, fmt.Errorf("insert book: %w", err)
	}
	book.ID = id

	l.publish(ctx, events.New(events.BookCreated, id.Hex(), map[string]string{
		"title":  book.Title,
		"userId": owner.Hex(),
	}))
	return book, nil
}

// ListAll returns every listing, newest first.
func (l *Listings) ListAll(ctx context.Context) ([]models.Book, error) {
	books, err := l.books.AllBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// ListOwn returns the owner's listings, newest first.
func (l *Listings) ListOwn(ctx context.Context, owner primitive.ObjectID) ([]models.Book, error) {
	books, err := l.books.BooksByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list own books: %w", err)
	}
	return books, nil
}

// Update changes allow-listed fields of a listing the owner owns. A listing that does
// not exist and one owned by someone else both yield ErrNotFound.
func (l *Listings) Update(ctx context.Context, id string, owner primitive.ObjectID, in UpdateBookInput) (*models.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	in.Title = sanitizePtr(in.Title)
	in.Author = sanitizePtr(in.Author)
	in.Genre = sanitizePtr(in.Genre)
	in.Description = sanitizePtr(in.Description)
	if in.Condition != nil {
		c := strings.ToLower(utils.SanitizeText(*in.Condition))
		in.Condition = &c
	}
	patch := models.BookPatch{
		Title:       in.Title,
		Author:      in.Author,
		Genre:       in.Genre,
		Condition:   in.Condition,
		Description: in.Description,
	}
	if in.Contact != nil {
		in.Contact.Platform = sanitizePtr(in.Contact.Platform)
		in.Contact.Handle = sanitizePtr(in.Contact.Handle)
		patch.ContactPlatform = in.Contact.Platform
		patch.ContactHandle = in.Contact.Handle
	}
	if err := check(in); err != nil {
		return nil, err
	}
	if err := blankFields(map[string]*string{
		"title":       patch.Title,
		"author":      patch.Author,
		"genre":       patch.Genre,
		"description": patch.Description,
		"platform":    patch.ContactPlatform,
		"handle":      patch.ContactHandle,
	}); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, ErrNoUpdates
	}

	book, err := l.books.UpdateBookForOwner(ctx, oid, owner, patch)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	if book == nil {
		return nil, ErrNotFound
	}
	return book, nil
}

// Delete removes a listing the owner owns. The cover is removed from the image host
// first; if that fails the failure is logged and the listing is deleted anyway.
func (l *Listings) Delete(ctx context.Context, id string, owner primitive.ObjectID) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	book, err := l.books.BookForOwner(ctx, oid, owner)
	if err != nil {
		return fmt.Errorf("find book: %w", err)
	}
	if book == nil {
		return ErrNotFound
	}

	l.deleteImage(ctx, book.Image.DeleteHandle)

	ok, err := l.books.DeleteBookForOwner(ctx, oid, owner)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	l.publish(ctx, events.New(events.BookDeleted, oid.Hex(), map[string]string{"userId": owner.Hex()}))
	return nil
}

// Like adds one like to any listing. No ownership or authentication is involved.
func (l *Listings) Like(ctx context.Context, id string) (*models.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	book, err := l.books.IncrementLikes(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("like book: %w", err)
	}
	if book == nil {
		return nil, ErrNotFound
	}
	return book, nil
}

// blankFields rejects fields that were supplied but are empty after sanitizing.
func blankFields(fields map[string]*string) error {
	var verr *ValidationError
	for name, v := range fields {
		if v == nil || *v != "" {
			continue
		}
		if verr == nil {
			verr = &ValidationError{Fields: map[string]string{}}
		}
		verr.Fields[name] = name + " cannot be empty"
	}
	if verr == nil {
		return nil
	}
	return verr
}

func (l *Listings) deleteImage(ctx context.Context, handle string) {
	if handle == "" {
		return
	}
	if err := l.images.Delete(ctx, handle); err != nil {
		logger.Log.Errorw("delete cover image failed", "handle", handle, "error", err)
	}
}

func (l *Listings) publish(ctx context.Context, e events.Event) {
	if err := l.events.Publish(ctx, e); err != nil {
		logger.Log.Warnw("publish event failed", "type", e.Type, "subject", e.Subject, "error", err)
	}
}

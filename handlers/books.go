package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kevinaaaquil/bookswap/models"
	"github.com/kevinaaaquil/bookswap/service"
	"github.com/kevinaaaquil/bookswap/utils"
)

const multipartMemory = 8 << 20

type BooksHandler struct {
	Listings *service.Listings
	// MaxImageBytes caps the decoded cover image.
	MaxImageBytes int64
}

// createBookRequest is the JSON form of a new listing. Image is a data: URI, a bare
// base64 payload or an http(s) URL.
type createBookRequest struct {
	Title       string               `json:"title"`
	Author      string               `json:"author"`
	Genre       string               `json:"genre"`
	Condition   string               `json:"condition"`
	Description string               `json:"description"`
	Contact     service.ContactInput `json:"contact"`
	Image       string               `json:"image"`
}

// Create lists a book. Accepts JSON, or multipart/form-data with the cover as the
// "image" file part (or an "image" field holding a reference).
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var (
		in  service.CreateBookInput
		err error
	)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "multipart/form-data" {
		in, err = h.readMultipart(r)
	} else {
		in, err = h.readJSON(r)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	book, err := h.Listings.Create(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.Success(w, http.StatusCreated, book, "book listed successfully")
}

func (h *BooksHandler) readJSON(r *http.Request) (service.CreateBookInput, error) {
	var req createBookRequest
	if err := decodeJSON(r, &req); err != nil {
		return service.CreateBookInput{}, err
	}
	in := service.CreateBookInput{
		Title:       req.Title,
		Author:      req.Author,
		Genre:       req.Genre,
		Condition:   req.Condition,
		Description: req.Description,
		Contact:     req.Contact,
	}
	hasImage := strings.TrimSpace(req.Image) != ""
	if err := h.Listings.ValidateFields(in, hasImage); err != nil {
		return service.CreateBookInput{}, err
	}
	if hasImage {
		data, err := utils.LoadImage(r.Context(), req.Image, h.MaxImageBytes)
		if err != nil {
			return service.CreateBookInput{}, err
		}
		in.Image = data
	}
	return in, nil
}

func (h *BooksHandler) readMultipart(r *http.Request) (service.CreateBookInput, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return service.CreateBookInput{}, err
		}
		return service.CreateBookInput{}, &service.ValidationError{Fields: map[string]string{"body": "malformed multipart form"}}
	}
	in := service.CreateBookInput{
		Title:       r.FormValue("title"),
		Author:      r.FormValue("author"),
		Genre:       r.FormValue("genre"),
		Condition:   r.FormValue("condition"),
		Description: r.FormValue("description"),
		Contact: service.ContactInput{
			Platform: firstNonEmpty(r.FormValue("contact.platform"), r.FormValue("platform")),
			Handle:   firstNonEmpty(r.FormValue("contact.handle"), r.FormValue("handle")),
		},
	}

	file, _, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
	}
	ref := r.FormValue("image")
	if verr := h.Listings.ValidateFields(in, err == nil || ref != ""); verr != nil {
		return service.CreateBookInput{}, verr
	}
	switch {
	case err == nil:
		data, err := io.ReadAll(file)
		if err != nil {
			return service.CreateBookInput{}, err
		}
		if in.Image, err = utils.CheckImage(data, h.MaxImageBytes); err != nil {
			return service.CreateBookInput{}, err
		}
	case errors.Is(err, http.ErrMissingFile):
		if ref != "" {
			if in.Image, err = utils.LoadImage(r.Context(), ref, h.MaxImageBytes); err != nil {
				return service.CreateBookInput{}, err
			}
		}
	default:
		return service.CreateBookInput{}, err
	}
	return in, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// List returns every listing, newest first.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.Listings.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.Success(w, http.StatusOK, nonNil(books), "")
}

func (h *BooksHandler) MyBooks(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	books, err := h.Listings.ListOwn(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.Success(w, http.StatusOK, nonNil(books), "")
}

func nonNil(books []models.Book) []models.Book {
	if books == nil {
		return []models.Book{}
	}
	return books
}

// Update edits one of the caller's listings. Listings owned by others look missing.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.UpdateBookInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	book, err := h.Listings.Update(r.Context(), chi.URLParam(r, "id"), user.ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.Success(w, http.StatusOK, book, "book updated")
}

func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.Listings.Delete(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	utils.Success(w, http.StatusOK, nil, "book deleted")
}

// Like is public: anyone may like any listing, any number of times.
func (h *BooksHandler) Like(w http.ResponseWriter, r *http.Request) {
	book, err := h.Listings.Like(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.Success(w, http.StatusOK, book, "")
}

package main

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// sendError writes the error envelope and logs when it cannot be delivered.
func (h *BaseHandler) sendError(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	errResp := NewAPIError(requestID, status, message, data)
	if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
		h.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetAllBooks godoc
// @Summary      List books
// @Description  Returns every book with its reviews in creation order.
// @Tags         books
// @Produce      json
// @Success      200  {array}   Book
// @Failure      500  {object}  APIError
// @Router       /books [get]
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	books, err := api.bookService.GetAll(r.Context())
	if err != nil {
		api.logger.Error("failed to get all books", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, "failed to get all books", EmptyData)
		return
	}
	api.logger.Info("success to get all books", zap.String("request.id", requestID), zap.Int("books.total", len(books)))
	if err = WriteResponse(r.Context(), w, http.StatusOK, books); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// CreateBook godoc
// @Summary      Create a book
// @Description  Stores a new book with an empty list of reviews.
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        book  body      BookDraft  true  "book to create"
// @Success      201   {object}  Book
// @Failure      400   {object}  APIError
// @Failure      500   {object}  APIError
// @Router       /books [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var draft BookDraft
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	err := DecodeRequestBody(r, &draft)
	if err != nil {
		api.logger.Error("failed to create book", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, http.StatusBadRequest, "failed to create the book", "invalid json body")
		return
	}

	err = ValidateBookDraft(&draft)
	if err != nil {
		api.logger.Error("failed to create book", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, http.StatusBadRequest, "failed to create the book", err.Error())
		return
	}

	book := NewBook(api.idsHandler.Generate(BookIDPrefix), draft)
	err = api.bookService.Add(r.Context(), book.ID, book)
	if err != nil {
		api.logger.Error("failed to create book", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, "failed to create the book", EmptyData)
		return
	}
	api.logger.Info("success to create book", zap.String("book.id", book.ID), zap.String("request.id", requestID))
	if err = WriteResponse(r.Context(), w, http.StatusCreated, book); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetOneBook godoc
// @Summary      Get a book
// @Tags         books
// @Produce      json
// @Param        id   path      string  true  "book id"
// @Success      200  {object}  Book
// @Failure      400  {object}  APIError
// @Failure      404  {object}  APIError
// @Failure      500  {object}  APIError
// @Router       /books/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	id := ps.ByName("id")
	if ok := api.idsHandler.IsValid(id, BookIDPrefix); !ok {
		api.logger.Error("book id provided is not valid", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, r, http.StatusBadRequest, "book id provided is not valid", EmptyData)
		return
	}
	book, err := api.bookService.GetOne(r.Context(), id)
	if errors.Is(err, ErrBookNotFound) {
		api.logger.Error("book does not exist", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, r, http.StatusNotFound, "book does not exist", EmptyData)
		return
	}
	if err != nil {
		api.logger.Error("failed to get book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, "failed to get the book", EmptyData)
		return
	}
	api.logger.Info("success to get book", zap.String("book.id", id), zap.String("request.id", requestID))
	if err = WriteResponse(r.Context(), w, http.StatusOK, book); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// AddBookReview godoc
// @Summary      Review a book
// @Description  Appends a rating and a comment to the book reviews.
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        id      path      string       true  "book id"
// @Param        review  body      ReviewDraft  true  "review to add"
// @Success      200     {object}  Book
// @Failure      400     {object}  APIError
// @Failure      404     {object}  APIError
// @Failure      500     {object}  APIError
// @Router       /books/{id}/reviews [post]
func (api *APIHandler) AddBookReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var draft ReviewDraft
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	id := ps.ByName("id")
	if ok := api.idsHandler.IsValid(id, BookIDPrefix); !ok {
		api.logger.Error("book id provided is not valid", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, r, http.StatusBadRequest, "book id provided is not valid", EmptyData)
		return
	}

	err := DecodeRequestBody(r, &draft)
	if err != nil {
		api.logger.Error("failed to add review", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, http.StatusBadRequest, "failed to add the review", "invalid json body")
		return
	}

	err = ValidateReviewDraft(&draft)
	if err != nil {
		api.logger.Error("failed to add review", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, http.StatusBadRequest, "failed to add the review", err.Error())
		return
	}

	book, err := api.bookService.AddReview(r.Context(), id, Review{Rating: draft.Rating, Comment: draft.Comment})
	if errors.Is(err, ErrBookNotFound) {
		api.logger.Error("book does not exist", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, r, http.StatusNotFound, "book does not exist", EmptyData)
		return
	}
	if err != nil {
		api.logger.Error("failed to add review", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, "failed to add the review", EmptyData)
		return
	}
	api.logger.Info("success to add review", zap.String("book.id", id), zap.String("request.id", requestID))
	if err = WriteResponse(r.Context(), w, http.StatusOK, book); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

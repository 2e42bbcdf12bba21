package main

import (
	"context"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	Add(ctx context.Context, id string, book Book) error
	GetOne(ctx context.Context, id string) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	AddReview(ctx context.Context, id string, review Review) (Book, error)
}

type BookService struct {
	logger  *zap.Logger
	storage BookStorage
	queue   Queuer
}

// NewBookService provides the book service. The queue is optional and
// only set when the backup replica is enabled.
func NewBookService(logger *zap.Logger, storage BookStorage, queue Queuer) BookServiceProvider {
	return &BookService{
		logger:  logger,
		storage: storage,
		queue:   queue,
	}
}

// backup pushes a snapshot of the book for the replica. Failures are only logged.
func (bs *BookService) backup(ctx context.Context, qid string, book Book) {
	if bs.queue == nil {
		return
	}
	if err := bs.queue.Push(ctx, qid, book); err != nil {
		bs.logger.Error("service: failed to push book to queue", zap.String("qid", qid), zap.String("book.id", book.ID), zap.Error(err))
	}
}

func (bs *BookService) Add(ctx context.Context, id string, book Book) error {
	if err := bs.storage.Add(ctx, id, book); err != nil {
		return err
	}
	bs.backup(ctx, CreateQueue, book)
	return nil
}

func (bs *BookService) GetOne(ctx context.Context, id string) (Book, error) {
	book, err := bs.storage.GetOne(ctx, id)
	return book, err
}

func (bs *BookService) GetAll(ctx context.Context) ([]Book, error) {
	books, err := bs.storage.GetAll(ctx)
	return books, err
}

func (bs *BookService) AddReview(ctx context.Context, id string, review Review) (Book, error) {
	book, err := bs.storage.AddReview(ctx, id, review)
	if err != nil {
		return book, err
	}
	bs.backup(ctx, ReviewQueue, book)
	return book, nil
}

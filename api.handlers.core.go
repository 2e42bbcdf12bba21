package main

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Statistics holds app stats for ops.
type Statistics struct {
	version   string
	container bool
	runtime   string
	platform  string
	called    uint64
	started   time.Time
	status    map[int]uint64
	mu        *sync.RWMutex
}

// Maintenance holds app maintenance mode infos.
type Maintenance struct {
	enabled atomic.Bool
	message string
	started time.Time
}

// BaseHandler carries the dependencies shared by the store and the web
// handlers: logging, settings, ops statistics and maintenance mode.
type BaseHandler struct {
	logger     *zap.Logger
	config     *Config
	stats      *Statistics
	mode       *Maintenance
	clock      Clocker
	idsHandler UIDHandler
	welcome    string
}

// NewBaseHandler provides a new instance of BaseHandler.
func NewBaseHandler(logger *zap.Logger, config *Config, stats *Statistics, clock Clocker, idsHandler UIDHandler) *BaseHandler {
	m := &Maintenance{}
	m.enabled.Store(false)
	stats.status = make(map[int]uint64)
	stats.mu = &sync.RWMutex{}
	return &BaseHandler{
		logger:     logger,
		config:     config,
		stats:      stats,
		mode:       m,
		clock:      clock,
		idsHandler: idsHandler,
		welcome:    "Hello. Bookshelf service is available. Enjoy :)",
	}
}

// APIHandler defines the book store API handler.
type APIHandler struct {
	*BaseHandler
	bookService BookServiceProvider
}

// NewAPIHandler provides a new instance of APIHandler.
func NewAPIHandler(logger *zap.Logger, config *Config, stats *Statistics, clock Clocker, idsHandler UIDHandler, bs BookServiceProvider) *APIHandler {
	base := NewBaseHandler(logger, config, stats, clock, idsHandler)
	base.welcome = "Welcome to Amazon Books API"
	return &APIHandler{
		BaseHandler: base,
		bookService: bs,
	}
}

package docledger

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("docledger: no store configured")
	ErrStoreClosed     = errors.New("docledger: store closed")
	ErrMigrationFailed = errors.New("docledger: migration failed")

	// Not found errors.
	ErrRunNotFound       = errors.New("docledger: workflow run not found")
	ErrDocumentNotFound  = errors.New("docledger: document not found")
	ErrAggregateNotFound = errors.New("docledger: sharing aggregate not found")
	ErrNoPendingDocument = errors.New("docledger: no pending document")

	// Precondition errors.
	ErrNoRecipients      = errors.New("docledger: recipient list is empty")
	ErrMissingTitle      = errors.New("docledger: document title is required")
	ErrMissingFilePath   = errors.New("docledger: document file path is required")
	ErrInvalidPrice      = errors.New("docledger: price must be positive")
	ErrFlowNotRegistered = errors.New("docledger: flow not registered")

	// State errors.
	ErrRunAlreadyExists = errors.New("docledger: run already exists")
	ErrInvalidState     = errors.New("docledger: invalid state transition")
	ErrRunNotActive     = errors.New("docledger: run is not active")
)

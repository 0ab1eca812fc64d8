package studymcq

import "errors"

var (
	// ErrEmptyBank is returned when a user has no questions to quiz on.
	ErrEmptyBank = errors.New("question bank is empty")
	// ErrInvalidCount is returned when a requested quiz size is outside [1, bank size].
	ErrInvalidCount = errors.New("invalid question count")
	// ErrLoadError is returned when the bank is non-empty but no questions could be drawn.
	ErrLoadError = errors.New("failed to load questions")
	// ErrInvalidFormat is returned for malformed option lines.
	ErrInvalidFormat = errors.New("invalid option format")
	// ErrQuestionNotFound is returned when a question does not exist or belongs to someone else.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrFlowExpired is returned when input refers to a flow or session that no longer exists.
	ErrFlowExpired = errors.New("flow expired")
	// ErrNoActiveSession is returned for quiz actions without a running session.
	ErrNoActiveSession = errors.New("no active quiz session")

	ErrInvalidMinQuestions = errors.New("minimum questions must be a positive integer")
	ErrInvalidMaxQuestions = errors.New("maximum questions must be at least the minimum")
	ErrInvalidNumber       = errors.New("number out of range")
	ErrInvalidTime         = errors.New("time must be HH:MM")
	ErrInvalidChoice       = errors.New("invalid choice")
	ErrEmptyInput          = errors.New("input must not be empty")
	ErrUnsupportedFormat   = errors.New("unsupported document format")
)

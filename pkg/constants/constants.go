package constants

import "github.com/go-playground/validator/v10"

type contextKey string

const (
	LoggerKey contextKey = "logger"
	TxKey     contextKey = "tx"
	PoolKey   contextKey = "pool"
)

// Validate is shared so struct tag metadata is cached once per process.
var Validate = validator.New(validator.WithRequiredStructEnabled())

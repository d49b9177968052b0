package transport

import (
	"github.com/redsail/redsail/storage"
	"go.uber.org/zap"
)

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on
	Port int

	// Reuseport controls setting SO_REUSEPORT
	Reuseport bool

	NumListeners int

	Store storage.Store

	Log *zap.Logger
}

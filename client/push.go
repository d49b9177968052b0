package client

import "strings"

// pushCommands are the commands after which the server emits an
// unbounded stream of frames instead of a single paired reply. Sending
// one of these switches the caller into draining Values directly.
var pushCommands = map[string]struct{}{
	"SUBSCRIBE":  {},
	"PSUBSCRIBE": {},
	"MONITOR":    {},
}

// IsPushCommand reports whether name starts a push mode conversation.
func IsPushCommand(name string) bool {
	_, ok := pushCommands[strings.ToUpper(name)]
	return ok
}

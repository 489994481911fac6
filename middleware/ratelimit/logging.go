package ratelimit

import (
	"io"

	"github.com/charmbracelet/log"
)

// loggerOrDiscard troca um logger nil por um que descarta tudo.
func loggerOrDiscard(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return log.New(io.Discard)
}

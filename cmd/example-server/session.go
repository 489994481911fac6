package main

import (
	"io"
	"sync"
)

// onceSession fecha o recurso uma vez só, não importa quem chame primeiro
// (o handler ou o Guard); as outras chamadas devolvem o mesmo erro.
type onceSession struct {
	close func() error
}

func newOnceSession(c io.Closer) *onceSession {
	return &onceSession{close: sync.OnceValue(c.Close)}
}

func (s *onceSession) Close() error { return s.close() }

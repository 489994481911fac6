package domain

// Session é um recurso associado ao request (ex: conexão/sessão de banco)
// que pode ser fechado à força quando o request passa do tempo máximo.
type Session interface {
	Close() error
}

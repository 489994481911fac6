package domain

import "time"

// SuspensionEntry marca um cliente como suspenso até ExpiresAt.
//
// Presença no store significa "suspenso"; ausência significa "livre".
type SuspensionEntry struct {
	Key       Key
	ExpiresAt time.Time
}

// SuspensionStore guarda as suspensões ativas em memória.
//
// IsSuspended já considera a whitelist: clientes na whitelist nunca aparecem
// como suspensos, mesmo que exista entrada para eles.
//
// Rearm é o "está suspenso? então recomeça a contagem" numa operação só, para
// que uma expiração no meio do caminho não ressuspenda um cliente já liberado.
// Expire remove a entrada só se ela ainda for a mesma que a tarefa agendou.
type SuspensionStore interface {
	IsSuspended(Key) bool
	Suspend(key Key, period time.Duration) SuspensionEntry
	Rearm(key Key, period time.Duration) (SuspensionEntry, bool)
	Release(Key)
	Expire(SuspensionEntry) bool
}

// ExpiryScheduler agenda a remoção de uma suspensão depois de um período.
//
// Existe no máximo uma tarefa pendente por chave: agendar de novo substitui
// a anterior. Cancelar uma tarefa que já disparou não tem efeito.
type ExpiryScheduler interface {
	Schedule(key Key, after time.Duration, fire func())
	Cancel(key Key) bool
}

// Whitelist é o conjunto imutável de clientes isentos de suspensão.
type Whitelist interface {
	Contains(Key) bool
}

// Verdict é o resultado de uma decisão de política sobre um request.
type Verdict int

const (
	// VerdictAllow libera o request para o roteamento.
	VerdictAllow Verdict = iota
	// VerdictForbidden bloqueia paths sensíveis (.env, .git, ...).
	VerdictForbidden
	// VerdictSuspended indica cliente já suspenso.
	VerdictSuspended
	// VerdictExceeded indica que a cota estourou e a suspensão começou agora.
	VerdictExceeded
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictForbidden:
		return "forbidden"
	case VerdictSuspended:
		return "suspended"
	case VerdictExceeded:
		return "exceeded"
	default:
		return "unknown"
	}
}

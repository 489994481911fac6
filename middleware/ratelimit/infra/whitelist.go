package infra

import (
	"sort"
	"strings"

	"suspension-gateway/middleware/ratelimit/domain"
)

// Whitelist é montada uma vez no startup e nunca muda depois disso,
// por isso não precisa de lock.
type Whitelist struct {
	set map[string]struct{}
}

var _ domain.Whitelist = (*Whitelist)(nil)

func NewWhitelist(keys ...string) *Whitelist {
	w := &Whitelist{set: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		w.set[k] = struct{}{}
	}
	return w
}

func (w *Whitelist) Contains(key domain.Key) bool {
	if w == nil {
		return false
	}
	_, ok := w.set[string(key)]
	return ok
}

func (w *Whitelist) Len() int {
	if w == nil {
		return 0
	}
	return len(w.set)
}

// Keys retorna as chaves ordenadas (útil para log no startup).
func (w *Whitelist) Keys() []string {
	if w == nil {
		return nil
	}
	out := make([]string, 0, len(w.set))
	for k := range w.set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Package application contém os casos de uso (regras de aplicação) para rate limit,
// suspensão de clientes e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Decide(key) retorna uma Decision (allow/deny + retry-after) e
// SuspensionService.Check(key, uri) retorna um Result com o Verdict da política.
package application

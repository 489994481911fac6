// Package ratelimit fornece adapters HTTP (net/http) para suspensão de clientes,
// rate limit por cota e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (veredito de suspensão, decisão de cota,
//     acquire/timeout) sem net/http
//   - infra: implementações concretas (token bucket, tabela de suspensões,
//     tarefas de expiração, semáforo, estatísticas)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução
//     para status/JSON
//
// Fluxo no gateway:
//
//  1. Recover captura panics e responde 500 genérico
//  2. Guard extrai a chave do cliente (IP/header/XFF), bloqueia paths
//     sensíveis (405) e clientes suspensos (429)
//  3. Middleware aplica a cota; ao estourar, ExceededHandler suspende o cliente (429)
//  4. ConcurrencyMiddleware limita requests simultâneos (503)
//  5. Se permitido, chama o próximo handler (ex: reverse proxy do serviço)
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o comportamento,
// como RATE_QUOTA, SUSPENSION_PERIOD, WHITELIST_IPS e CONCURRENCY_MAX.
package ratelimit

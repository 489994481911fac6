// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Store: token bucket por chave usando golang.org/x/time/rate
//   - ParseQuota: converte "5/minute" em limite + burst para o Store
//   - SuspensionStore / ExpiryScheduler: tabela de suspensões em memória e
//     tarefas de expiração canceláveis por chave
//   - Whitelist: conjunto imutável de clientes isentos
//   - ChanPool: semáforo simples para limite de concorrência
//   - MemoryStatsStore / RedisStatsStore / PrometheusStats: destinos de estatística
package infra

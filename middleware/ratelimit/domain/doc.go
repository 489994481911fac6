// Package domain define contratos e tipos de domínio para rate limit, suspensão
// de clientes e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura (Redis, Prometheus). O relógio é um
// clockwork.Clock adaptado: real em produção, fake nos testes.
package domain

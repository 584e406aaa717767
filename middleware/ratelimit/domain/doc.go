// Package domain define contratos e tipos de domínio para o rate limit
// distribuído do gateway.
//
// Este pacote não depende de net/http nem de implementações concretas
// (redis, memória). A intenção é permitir testes de unidade puros e
// desacoplar a regra da janela fixa dos detalhes de infraestrutura.
package domain

// Package domain define contratos e tipos de domínio para a verificação de
// token do gateway.
//
// Este pacote não depende de net/http, de redis nem do upstream client; as
// implementações concretas ficam em infra e o caso de uso em application.
package domain

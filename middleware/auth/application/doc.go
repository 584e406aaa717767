// Package application contém o caso de uso de verificação de token
// (cache-aside sobre a chamada whoami do core).
//
// Ele depende dos contratos do pacote domain e do tipo de erro do envelope;
// não conhece net/http nem redis.
package application

// core-falso simula o core service para validar o gateway na mão:
// responde no envelope {success,data/error}, aceita qualquer login e
// considera válido qualquer token emitido por ele.
package main

import (
	"fmt"
	"net/http"
	"strings"
)

func main() {
	http.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"data":{"token":"token-valido","user":{"id":7,"name":"Bo"}}}`)
		fmt.Println("Log: login aceito")
	})

	http.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer token-") {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success":false,"error":{"code":"INVALID_TOKEN","message":"token desconhecido"}}`)
			return
		}
		fmt.Fprint(w, `{"success":true,"data":{"id":7,"name":"Bo","role":"customer"}}`)
		fmt.Println("Log: whoami respondido (correlation:", r.Header.Get("X-Correlation-Id"), ")")
	})

	http.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"data":null}`)
		fmt.Println("Log: logout")
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"success":true,"data":{"echo":"%s %s"}}`, r.Method, r.URL.Path)
	})

	fmt.Println("Core falso rodando em http://localhost:9090")
	err := http.ListenAndServe(":9090", nil)
	if err != nil {
		fmt.Printf("Erro ao subir o servidor: %s\n", err)
	}
}

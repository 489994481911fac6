package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Upstream de teste para o gateway. Em configs/microservices.json:
//
//	{"tela": "http://localhost:8081"}
//
// e acesse http://localhost:8080/<cliente>/microservices/tela/showTela
func main() {
	logger := log.NewWithOptions(os.Stdout, log.Options{ReportTimestamp: true, Prefix: "burrao"})

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /showTela", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<h1>Tela do Sistema</h1><p>Requisição recebida com sucesso!</p>"))
		logger.Info("showTela", "client", r.Header.Get("X-Client-Name"), "from", r.Header.Get("X-Forwarded-For"))
	})
	// /lento segura o request para testar o MaxConnectionAge do gateway.
	mux.HandleFunc("GET /lento", func(w http.ResponseWriter, r *http.Request) {
		d, err := time.ParseDuration(r.URL.Query().Get("d"))
		if err != nil {
			d = 5 * time.Second
		}
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"slept": d.String()})
	})

	logger.Info("servidor rodando", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("erro ao subir o servidor", "err", err)
	}
}

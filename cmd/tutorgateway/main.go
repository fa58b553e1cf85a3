// Command tutorgateway serves the websocket tutor for browser clients and
// persists every conversation in sqlite.
//
// It needs GEMINI_API_KEY in the environment.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/lingualive/tutor-core/core/tutor/gemini"
	"github.com/lingualive/tutor-core/gateway"
	"github.com/lingualive/tutor-core/store"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dbPath := flag.String("db", "tutor.db", "sqlite database path")
	language := flag.String("language", "en-US", "BCP-47 tag of the language to practice")
	flag.Parse()

	if err := run(*addr, *dbPath, *language); err != nil {
		log.Fatalln("tutorgateway:", err)
	}
}

func run(addr, dbPath, language string) error {
	sessions, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer sessions.Close()

	handler := gateway.NewHandler(
		func() (gateway.Tutor, error) {
			return gemini.NewClient(gemini.WithLanguage(language))
		},
		gateway.WithRecorder(sessions, language),
	)

	mux := http.NewServeMux()
	mux.Handle("/live", handler)

	fmt.Println("listening on", addr)
	return http.ListenAndServe(addr, mux)
}

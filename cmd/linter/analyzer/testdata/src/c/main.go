package main

import (
	"log"
	"net/http"
	"os"
)

func main() {
	if err := http.ListenAndServe(":8080", nil); err != nil {
		log.Fatal(err)
	}

	if someCondition() {
		os.Exit(1)
	}
}

func someCondition() bool {
	return false
}

func recoverPanic() {
	panic("recover") // want "panic should not be used in production code"
}

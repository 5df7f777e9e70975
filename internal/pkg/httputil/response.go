package httputil

import (
	"net/http"

	"github.com/go-chi/render"
)

// Envelope is the response body shared by every form endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Respond writes an Envelope with the given status code.
func Respond(w http.ResponseWriter, r *http.Request, status int, success bool, message string) {
	render.Status(r, status)
	render.JSON(w, r, Envelope{Success: success, Message: message})
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, r *http.Request, message string) {
	Respond(w, r, http.StatusCreated, true, message)
}

// Fail writes an unsuccessful envelope with the given status code.
func Fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	Respond(w, r, status, false, message)
}

// JSON writes an arbitrary JSON document with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, http.StatusBadRequest, "nope")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %s", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Decode err: %v", err)
	}
	if body["error"] != "nope" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRespondAudio(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondAudio(rr, http.StatusOK, "audio/mpeg", []byte("ID3"))

	if rr.Header().Get("Content-Length") != "3" {
		t.Fatalf("unexpected content length %s", rr.Header().Get("Content-Length"))
	}
	if rr.Body.String() != "ID3" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

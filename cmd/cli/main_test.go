package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"inigma/internal/domain"
	"inigma/internal/utility"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	os.Stdout = oldStdout
	return buf.String()
}

func TestCreateSecret(t *testing.T) {
	var received domain.CreateReq
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/create" {
			t.Errorf("Expected to request '/api/create', got: %s", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("Expected 'POST' method, got: %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.CreateRes{ID: "test-id"})
	}))
	defer server.Close()

	out := captureStdout(t, func() {
		createSecret(server.URL, "test-secret", 7)
	})

	if !strings.Contains(out, "ID: test-id") {
		t.Errorf("Expected output to contain 'ID: test-id', got '%s'", out)
	}
	if !strings.Contains(out, "Passphrase:") {
		t.Errorf("Expected output to contain 'Passphrase:', got '%s'", out)
	}

	if received.TTLDays == nil || *received.TTLDays != 7 {
		t.Errorf("Expected ttl 7 in request, got %v", received.TTLDays)
	}
	if received.Ciphertext == "" || received.IV == "" || received.Salt == "" {
		t.Errorf("Expected a sealed payload in the request, got %+v", received)
	}
	if received.Ciphertext == "test-secret" {
		t.Error("Plaintext must never leave the client")
	}

	// the printed passphrase must decrypt what the server received
	var passphrase string
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "Passphrase: "); ok {
			passphrase = rest
		}
	}
	pt, err := utility.Open(utility.Sealed{
		Ciphertext: received.Ciphertext,
		IV:         received.IV,
		Salt:       received.Salt,
	}, passphrase)
	if err != nil {
		t.Fatalf("failed to decrypt uploaded payload: %v", err)
	}
	if string(pt) != "test-secret" {
		t.Errorf("Expected decrypted payload 'test-secret', got '%s'", pt)
	}
}

func TestViewSecret(t *testing.T) {
	sealed, err := utility.Seal([]byte("test-secret"), "test-passphrase")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/view" {
			t.Errorf("Expected to request '/api/view', got: %s", r.URL.Path)
		}
		var req domain.ViewReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.ID != "test-id" {
			t.Errorf("Expected view 'test-id', got: %s", req.ID)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(domain.ViewRes{
			Ciphertext: sealed.Ciphertext,
			IV:         sealed.IV,
			Salt:       sealed.Salt,
		})
	}))
	defer server.Close()

	out := captureStdout(t, func() {
		viewSecret(server.URL, "test-id", "test-passphrase")
	})

	if out != "test-secret\n" {
		t.Errorf("Expected output to be 'test-secret', got '%s'", out)
	}
}

func TestClaimSecret(t *testing.T) {
	sealed, err := utility.Seal([]byte("test-secret"), "sharing-passphrase")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	var claim domain.ClaimReq
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/view":
			json.NewEncoder(w).Encode(domain.ViewRes{
				Ciphertext: sealed.Ciphertext,
				IV:         sealed.IV,
				Salt:       sealed.Salt,
			})
		case "/api/claim":
			if err := json.NewDecoder(r.Body).Decode(&claim); err != nil {
				t.Errorf("failed to decode claim: %v", err)
			}
			json.NewEncoder(w).Encode(domain.StatusRes{Status: "success"})
		default:
			t.Errorf("Unexpected request path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	t.Setenv("INIGMA_UID", "test-owner")

	out := captureStdout(t, func() {
		claimSecret(server.URL, "test-id", "sharing-passphrase")
	})

	if !strings.Contains(out, "New passphrase:") {
		t.Errorf("Expected output to contain 'New passphrase:', got '%s'", out)
	}
	if claim.UID != "test-owner" {
		t.Errorf("Expected claim uid 'test-owner', got '%s'", claim.UID)
	}
	if claim.Salt == sealed.Salt || claim.Ciphertext == sealed.Ciphertext {
		t.Error("Claim must re-encrypt under a fresh salt")
	}

	var newPassphrase string
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "New passphrase: "); ok {
			newPassphrase = rest
		}
	}
	pt, err := utility.Open(utility.Sealed{
		Ciphertext: claim.Ciphertext,
		IV:         claim.IV,
		Salt:       claim.Salt,
	}, newPassphrase)
	if err != nil {
		t.Fatalf("failed to decrypt re-encrypted payload: %v", err)
	}
	if string(pt) != "test-secret" {
		t.Errorf("Expected decrypted payload 'test-secret', got '%s'", pt)
	}
}

func TestPrintUsage(t *testing.T) {
	out := captureStdout(t, func() {
		printUsage()
	})

	for _, want := range []string{"Usage:", "create", "view", "claim", "help"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain '%s', got '%s'", want, out)
		}
	}
}

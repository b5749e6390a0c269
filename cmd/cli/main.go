package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"inigma/internal/domain"
	"inigma/internal/utility"
)

const defaultBaseURL = "http://localhost:8080"

const (
	maxRetries = 5
	retryDelay = 1 * time.Second
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("INIGMA_API_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	switch os.Args[1] {
	case "create":
		if len(os.Args) != 3 && len(os.Args) != 4 {
			fmt.Fprintf(os.Stderr, "Usage: %s create <secret> [ttl-days]\n", os.Args[0])
			os.Exit(1)
		}
		ttlDays := -1
		if len(os.Args) == 4 {
			n, err := strconv.Atoi(os.Args[3])
			if err != nil {
				log.Fatalf("ttl-days must be a number: %v", err)
			}
			ttlDays = n
		}
		createSecret(baseURL, os.Args[2], ttlDays)
	case "view":
		if len(os.Args) != 4 {
			fmt.Fprintf(os.Stderr, "Usage: %s view <id> <passphrase>\n", os.Args[0])
			os.Exit(1)
		}
		viewSecret(baseURL, os.Args[2], os.Args[3])
	case "claim":
		if len(os.Args) != 4 {
			fmt.Fprintf(os.Stderr, "Usage: %s claim <id> <passphrase>\n", os.Args[0])
			os.Exit(1)
		}
		claimSecret(baseURL, os.Args[2], os.Args[3])
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s <command> [arguments]\n", os.Args[0])
	fmt.Println("Share end-to-end encrypted secrets.")
	fmt.Println("\nCommands:")
	fmt.Println("  create <secret> [ttl-days] Encrypt and store a secret (ttl-days: 0 keeps it forever)")
	fmt.Println("  view <id> <passphrase>     Fetch and decrypt a secret")
	fmt.Println("  claim <id> <passphrase>    Take ownership of a shared secret")
	fmt.Println("  help                       Show this help message")
	fmt.Println("\nEnvironment variables:")
	fmt.Println("  INIGMA_API_URL             Base URL of the API (default: http://localhost:8080)")
	fmt.Println("  INIGMA_UID                 Identity to act as (default: generated per run)")
}

// identity returns the uid this invocation acts as. Claiming and listing
// only make sense with a stable uid, so users who care set INIGMA_UID.
func identity() string {
	if uid := os.Getenv("INIGMA_UID"); uid != "" {
		return uid
	}
	return uuid.NewString()
}

// doRequestWithRetry retries through temporary gateway errors, which
// serverless deployments return while an instance wakes up.
func doRequestWithRetry(req *http.Request) (*http.Response, error) {
	client := &http.Client{}

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			log.Printf("server returned 502, retrying in %v... (%d/%d)", retryDelay, i, maxRetries-1)
			time.Sleep(retryDelay)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusBadGateway {
			return resp, nil
		}

		resp.Body.Close()
	}

	return nil, fmt.Errorf("server unavailable after %d retries", maxRetries)
}

func postJSON(baseURL, path string, body any, wantStatus int, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(reqBody)), nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := doRequestWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func createSecret(baseURL, plaintext string, ttlDays int) {
	passphrase, err := utility.GeneratePassphrase()
	if err != nil {
		log.Fatalf("failed to generate passphrase: %v", err)
	}

	sealed, err := utility.Seal([]byte(plaintext), passphrase)
	if err != nil {
		log.Fatalf("failed to encrypt secret: %v", err)
	}

	uid := identity()
	req := domain.CreateReq{
		Ciphertext: sealed.Ciphertext,
		IV:         sealed.IV,
		Salt:       sealed.Salt,
		CreatorUID: uid,
	}
	if ttlDays >= 0 {
		req.TTLDays = &ttlDays
	}

	var res domain.CreateRes
	if err := postJSON(baseURL, "/api/create", req, http.StatusCreated, &res); err != nil {
		log.Fatalf("failed to create secret: %v", err)
	}

	fmt.Println("Your secret is ready to share:")
	fmt.Printf("ID: %s\n", res.ID)
	fmt.Printf("Passphrase: %s\n", passphrase)
	fmt.Printf("Acting as: %s\n", uid)
}

func fetchSecret(baseURL, id, uid string) (domain.ViewRes, error) {
	var res domain.ViewRes
	err := postJSON(baseURL, "/api/view", domain.ViewReq{ID: id, UID: uid},
		http.StatusOK, &res)
	return res, err
}

func viewSecret(baseURL, id, passphrase string) {
	res, err := fetchSecret(baseURL, id, identity())
	if err != nil {
		log.Fatalf("failed to view secret: %v", err)
	}

	pt, err := utility.Open(utility.Sealed{
		Ciphertext: res.Ciphertext,
		IV:         res.IV,
		Salt:       res.Salt,
	}, passphrase)
	if err != nil {
		log.Fatalf("failed to decrypt secret: %v", err)
	}

	fmt.Println(string(pt))
}

// claimSecret decrypts the shared payload, re-encrypts it under a fresh
// salt and nonce, and submits the claim. After this the sharing passphrase
// no longer matters to anyone but the new owner.
func claimSecret(baseURL, id, passphrase string) {
	uid := identity()

	res, err := fetchSecret(baseURL, id, uid)
	if err != nil {
		log.Fatalf("failed to fetch secret: %v", err)
	}

	pt, err := utility.Open(utility.Sealed{
		Ciphertext: res.Ciphertext,
		IV:         res.IV,
		Salt:       res.Salt,
	}, passphrase)
	if err != nil {
		log.Fatalf("failed to decrypt secret: %v", err)
	}

	newPassphrase, err := utility.GeneratePassphrase()
	if err != nil {
		log.Fatalf("failed to generate passphrase: %v", err)
	}
	resealed, err := utility.Seal(pt, newPassphrase)
	if err != nil {
		log.Fatalf("failed to re-encrypt secret: %v", err)
	}

	claim := domain.ClaimReq{
		ID:         id,
		UID:        uid,
		Ciphertext: resealed.Ciphertext,
		IV:         resealed.IV,
		Salt:       resealed.Salt,
	}
	if err := postJSON(baseURL, "/api/claim", claim, http.StatusOK, nil); err != nil {
		log.Fatalf("failed to claim secret: %v", err)
	}

	fmt.Println("Secret claimed.")
	fmt.Printf("New passphrase: %s\n", newPassphrase)
	fmt.Printf("Owner uid: %s\n", uid)
}

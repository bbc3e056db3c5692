package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"depinledger/services/ledger/server"
)

// httpClient is swapped by tests.
var httpClient = &http.Client{Timeout: 15 * time.Second}

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	wallet := solana.NewWallet()
	return writeResult(stdout, stderr, map[string]string{
		"publicKey":  wallet.PublicKey().String(),
		"privateKey": wallet.PrivateKey.String(),
	})
}

func loadKey(keyArg, keyFile string) (solana.PrivateKey, error) {
	raw := strings.TrimSpace(keyArg)
	if raw == "" && strings.TrimSpace(keyFile) != "" {
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		raw = strings.TrimSpace(string(data))
	}
	if raw == "" {
		return nil, fmt.Errorf("--key or --key-file is required")
	}
	key, err := solana.PrivateKeyFromBase58(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}
	return key, nil
}

func runSign(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		keyArg  string
		keyFile string
		payload string
		post    string
	)
	fs.StringVar(&keyArg, "key", "", "base58 private key")
	fs.StringVar(&keyFile, "key-file", "", "file holding the base58 private key")
	fs.StringVar(&payload, "payload", "-", "request JSON file, - for stdin")
	fs.StringVar(&post, "post", "", "depind base URL to submit the signed request to")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadKey(keyArg, keyFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var data []byte
	if payload == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(payload)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: read payload: %v\n", err)
		return 1
	}
	var req server.Request
	if err := json.Unmarshal(data, &req); err != nil {
		fmt.Fprintf(stderr, "Error: decode payload: %v\n", err)
		return 1
	}
	if strings.TrimSpace(req.Operation) == "" {
		fmt.Fprintln(stderr, "Error: payload operation is required")
		return 1
	}
	if req.IssuedAt == 0 {
		req.IssuedAt = cliNow().Unix()
	}
	env, err := server.SignRequest(key, req)
	if err != nil {
		fmt.Fprintf(stderr, "Error: sign: %v\n", err)
		return 1
	}
	// The payload is signed byte for byte, so the envelope is never re-indented.
	body, err := json.Marshal(env)
	if err != nil {
		fmt.Fprintf(stderr, "Error: encode envelope: %v\n", err)
		return 1
	}
	if strings.TrimSpace(post) == "" {
		fmt.Fprintln(stdout, string(body))
		return 0
	}
	endpoint := strings.TrimRight(strings.TrimSpace(post), "/") + "/v1/requests"
	resp, err := httpClient.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(stderr, "Error: post: %v\n", err)
		return 1
	}
	defer resp.Body.Close()
	reply, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fmt.Fprintf(stderr, "Error: read response: %v\n", err)
		return 1
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "Error: depind returned %d: %s\n", resp.StatusCode, strings.TrimSpace(string(reply)))
		return 1
	}
	fmt.Fprintln(stdout, strings.TrimSpace(string(reply)))
	return 0
}

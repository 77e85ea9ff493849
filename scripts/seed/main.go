// Package main seeds a running zapleads API with a demo tenant: it
// registers an account, configures messaging settings, imports a few
// leads and simulates one inbound WhatsApp webhook.
//
// Usage:
//
//	API_URL=http://localhost:8080 go run scripts/seed/main.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	demoEmail    = "demo@zapleads.dev"
	demoPassword = "demo-password-1"
	demoSID      = "ACdemo0000000000000000000000000000"
)

var (
	apiURL string
	client = &http.Client{Timeout: 15 * time.Second}
)

func main() {
	apiURL = os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	apiURL = strings.TrimRight(apiURL, "/")

	token, err := register()
	if err != nil {
		fail("register demo tenant", err)
	}
	fmt.Println("registered demo tenant", demoEmail)

	if err := configureSettings(token); err != nil {
		fail("configure settings", err)
	}
	fmt.Println("configured messaging settings")

	if err := importLeads(token); err != nil {
		fail("import leads", err)
	}
	fmt.Println("imported sample leads")

	if err := simulateInbound(); err != nil {
		fail("simulate inbound webhook", err)
	}
	fmt.Println("simulated one inbound WhatsApp message")
}

func register() (string, error) {
	body := map[string]string{
		"email":       demoEmail,
		"password":    demoPassword,
		"companyName": "Demo Imóveis",
	}
	resp, err := postJSON("/api/auth/register", "", body)
	if err != nil {
		return "", err
	}
	// Re-running the seed against the same database: fall back to login.
	if resp.StatusCode == http.StatusBadRequest {
		resp, err = postJSON("/api/auth/login", "", map[string]string{
			"email": demoEmail, "password": demoPassword,
		})
		if err != nil {
			return "", err
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", unexpected(resp)
	}
	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return parsed.Token, nil
}

func configureSettings(token string) error {
	resp, err := putJSON("/api/settings", token, map[string]string{
		"companyName":       "Demo Imóveis",
		"twilioAccountSid":  demoSID,
		"twilioAuthToken":   "demo-auth-token",
		"twilioPhoneNumber": "whatsapp:+14155238886",
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return unexpected(resp)
	}
	return nil
}

func importLeads(token string) error {
	rows := []map[string]string{
		{"Nome": "Maria Souza", "Telefone": "+5511999990001", "Status": "qualificado", "Email": "maria@example.com"},
		{"Nome": "João Pereira", "Telefone": "+5511999990002"},
		{"Nome": "Ana Lima", "Telefone": "+5511999990003", "Status": "fechado", "Observações": "Indicação"},
	}
	resp, err := postJSON("/api/leads/import", token, rows)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return unexpected(resp)
	}
	return nil
}

func simulateInbound() error {
	form := url.Values{}
	form.Set("From", "whatsapp:+5511999990004")
	form.Set("To", "whatsapp:+14155238886")
	form.Set("Body", "Olá, vi o anúncio do apartamento. Ainda está disponível?")
	form.Set("MessageSid", fmt.Sprintf("SMdemo%d", time.Now().UnixNano()))
	form.Set("AccountSid", demoSID)
	form.Set("ProfileName", "Carlos Demo")

	req, err := http.NewRequest(http.MethodPost, apiURL+"/webhook/whatsapp", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return unexpected(resp)
	}
	return nil
}

func postJSON(path, token string, payload any) (*http.Response, error) {
	return doJSON(http.MethodPost, path, token, payload)
}

func putJSON(path, token string, payload any) (*http.Response, error) {
	return doJSON(http.MethodPut, path, token, payload)
}

func doJSON(method, path, token string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(method, apiURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return client.Do(req)
}

func unexpected(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "seed failed at %s: %v\n", step, err)
	os.Exit(1)
}

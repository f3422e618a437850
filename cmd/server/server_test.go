package main

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nickyhof/MemDB"
	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/ps"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

func newTestInstance(t *testing.T) (*MemDB.Instance, *ps.Persistence) {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	return MemDB.Open(persistence), persistence
}

func setupTestServer(t *testing.T) *Server {
	instance, _ := newTestInstance(t)
	server := NewServer(instance, testIdentity)
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { server.Stop() })
	return server
}

// client is one connection speaking the line protocol
type client struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (c *client) send(line string) Response {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		c.t.Fatalf("Failed to send: %v", err)
	}
	response, err := c.reader.ReadString('\n')
	if err != nil {
		c.t.Fatalf("Failed to read response: %v", err)
	}
	var resp Response
	if err := json.Unmarshal([]byte(response), &resp); err != nil {
		c.t.Fatalf("Failed to parse response: %v", err)
	}
	return resp
}

func (c *client) request(req Request) Response {
	c.t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		c.t.Fatalf("Failed to encode request: %v", err)
	}
	return c.send(string(data))
}

func mustSucceed(t *testing.T, resp Response) {
	t.Helper()
	if !resp.Success {
		t.Fatalf("Expected success, got error: %s", resp.Error)
	}
}

func TestServerStartStop(t *testing.T) {
	server := setupTestServer(t)

	if server.Addr() == "" {
		t.Error("Expected non-empty address")
	}
}

func TestServerStopClosesConnections(t *testing.T) {
	instance, _ := newTestInstance(t)
	server := NewServer(instance, testIdentity)
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	c := dial(t, server.Addr())
	mustSucceed(t, c.send("SELECT 1"))

	done := make(chan error, 1)
	go func() { done <- server.Stop() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return while a client was connected")
	}
}

func TestServerCreateTableAndInsert(t *testing.T) {
	server := setupTestServer(t)
	c := dial(t, server.Addr())

	resp := c.send("CREATE TABLE users (id INT PRIMARY KEY AUTO_INCREMENT, name STRING)")
	mustSucceed(t, resp)
	if resp.Type != "mutation" {
		t.Errorf("Expected mutation type, got: %s", resp.Type)
	}

	resp = c.request(Request{Query: "INSERT INTO users (name) VALUES (?), (?)", Args: []any{"Alice", "Bob"}})
	mustSucceed(t, resp)

	var mr MutationResponse
	if err := json.Unmarshal(resp.Result, &mr); err != nil {
		t.Fatalf("Failed to parse mutation result: %v", err)
	}
	if mr.NumRows != 2 || mr.InsertID != 2.0 {
		t.Errorf("Expected 2 rows with insert_id 2, got %+v", mr)
	}
}

func TestServerSelect(t *testing.T) {
	server := setupTestServer(t)
	c := dial(t, server.Addr())

	mustSucceed(t, c.send("CREATE TABLE users (id INT PRIMARY KEY, name STRING)"))
	mustSucceed(t, c.send("INSERT INTO users VALUES (1, 'Alice'), (2, NULL)"))

	resp := c.request(Request{Query: "SELECT id, name FROM users WHERE id >= ? ORDER BY id", Args: []any{1}})
	mustSucceed(t, resp)
	if resp.Type != "query" {
		t.Errorf("Expected query type, got: %s", resp.Type)
	}

	var qr QueryResponse
	if err := json.Unmarshal(resp.Result, &qr); err != nil {
		t.Fatalf("Failed to parse query result: %v", err)
	}
	if qr.RecordsRead != 2 {
		t.Fatalf("Expected 2 records, got %d", qr.RecordsRead)
	}
	if qr.Columns[1] != "users.name" || qr.Data[0][1] != "Alice" || qr.Data[1][1] != "NULL" {
		t.Errorf("Unexpected result: %v %v", qr.Columns, qr.Data)
	}
}

func TestServerErrors(t *testing.T) {
	server := setupTestServer(t)
	c := dial(t, server.Addr())

	tests := []struct {
		line     string
		expected string
	}{
		{"SELECT * FROM nonexistent", "does not exist"},
		{"SELEKT 1", "position"},
		{`{"query": "SELECT ?"}`, "placeholder"},
		{`{"query": `, "invalid request"},
		{"AUTH JWT token", "authentication not configured"},
	}
	for _, test := range tests {
		resp := c.send(test.line)
		if resp.Success {
			t.Errorf("%s: expected failure", test.line)
			continue
		}
		if !strings.Contains(resp.Error, test.expected) {
			t.Errorf("%s: expected error containing %q, got %q", test.line, test.expected, resp.Error)
		}
	}

	// the connection survives errors
	mustSucceed(t, c.send("SELECT 1"))
}

func TestServerSharedEngine(t *testing.T) {
	server := setupTestServer(t)
	first := dial(t, server.Addr())
	second := dial(t, server.Addr())

	mustSucceed(t, first.send("CREATE TABLE t (x NUMBER)"))
	mustSucceed(t, second.send("INSERT INTO t VALUES (1)"))

	var qr QueryResponse
	resp := first.send("SELECT COUNT(*) AS n FROM t")
	mustSucceed(t, resp)
	if err := json.Unmarshal(resp.Result, &qr); err != nil {
		t.Fatalf("Failed to parse query result: %v", err)
	}
	if qr.Data[0][0] != "1" {
		t.Errorf("Expected count 1 across connections, got %v", qr.Data)
	}
}

func TestServerQuit(t *testing.T) {
	server := setupTestServer(t)
	c := dial(t, server.Addr())

	if _, err := c.conn.Write([]byte("quit\n")); err != nil {
		t.Fatalf("Failed to send quit: %v", err)
	}
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.reader.ReadString('\n'); err == nil {
		t.Error("Expected the server to close the connection")
	}
}

func TestServerCheckpointIdentity(t *testing.T) {
	instance, persistence := newTestInstance(t)
	defaultIdentity := core.Identity{Name: "Default User", Email: "default@test.com"}
	server := NewServer(instance, defaultIdentity)
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer server.Stop()
	c := dial(t, server.Addr())

	mustSucceed(t, c.send("CREATE TABLE t (x NUMBER)"))
	resp := c.request(Request{Checkpoint: "created t"})
	mustSucceed(t, resp)

	var cr CheckpointResponse
	if err := json.Unmarshal(resp.Result, &cr); err != nil {
		t.Fatalf("Failed to parse checkpoint result: %v", err)
	}
	txn := persistence.LatestTransaction()
	if txn.Id != cr.ID || txn.Message != "created t" {
		t.Errorf("Expected checkpoint %s, got %s", cr.ID, txn.Id)
	}
	if txn.Author != "Default User <default@test.com>" {
		t.Errorf("Expected the default identity as author, got %q", txn.Author)
	}
}

// setupAuthTestServer creates a server with authentication enabled
func setupAuthTestServer(t *testing.T, secret string) (*Server, *ps.Persistence) {
	instance, persistence := newTestInstance(t)
	server := NewServerWithAuth(instance, testIdentity, &AuthConfig{JWTSecret: secret})
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { server.Stop() })
	return server, persistence
}

// createTestJWT creates a signed token carrying name and email claims
func createTestJWT(t *testing.T, secret, name, email string, ttl time.Duration) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name":  name,
		"email": email,
		"exp":   time.Now().Add(ttl).Unix(),
	})
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to create test JWT: %v", err)
	}
	return tokenString
}

func TestAuthRequired(t *testing.T) {
	server, _ := setupAuthTestServer(t, "test-secret")
	c := dial(t, server.Addr())

	resp := c.send("SELECT 1")
	if resp.Success {
		t.Error("Expected failure when not authenticated")
	}
	if !strings.Contains(resp.Error, "authentication required") {
		t.Errorf("Expected 'authentication required' error, got: %s", resp.Error)
	}
}

func TestAuthWithValidJWT(t *testing.T) {
	secret := "test-secret"
	server, persistence := setupAuthTestServer(t, secret)
	c := dial(t, server.Addr())

	resp := c.send("AUTH JWT " + createTestJWT(t, secret, "Test User", "test@example.com", time.Hour))
	mustSucceed(t, resp)
	if resp.Type != "auth" {
		t.Errorf("Expected 'auth' type, got: %s", resp.Type)
	}

	var ar AuthResponse
	if err := json.Unmarshal(resp.Result, &ar); err != nil {
		t.Fatalf("Failed to parse auth result: %v", err)
	}
	if !ar.Authenticated || ar.Identity != "Test User <test@example.com>" {
		t.Errorf("Unexpected auth result: %+v", ar)
	}
	if ar.Session == "" || ar.ExpiresIn <= 0 {
		t.Errorf("Expected a session id and expiry, got %+v", ar)
	}

	mustSucceed(t, c.send("CREATE TABLE t (x NUMBER)"))
	mustSucceed(t, c.request(Request{Checkpoint: "as jwt user"}))
	if author := persistence.LatestTransaction().Author; author != "Test User <test@example.com>" {
		t.Errorf("Expected the token identity as author, got %q", author)
	}
}

func TestAuthWithInvalidJWT(t *testing.T) {
	server, _ := setupAuthTestServer(t, "test-secret")
	c := dial(t, server.Addr())

	tests := []string{
		"AUTH JWT " + createTestJWT(t, "wrong-secret", "Test User", "test@example.com", time.Hour),
		"AUTH JWT " + createTestJWT(t, "test-secret", "Test User", "test@example.com", -time.Hour),
		"AUTH JWT " + createTestJWT(t, "test-secret", "", "", time.Hour),
		"AUTH BASIC dXNlcjpwYXNz",
		"AUTH JWT",
	}
	for _, line := range tests {
		resp := c.send(line)
		if resp.Success || resp.Error == "" {
			t.Errorf("Expected auth to fail for %q", line)
		}
	}

	if resp := c.send("SELECT 1"); resp.Success {
		t.Error("Expected queries to stay rejected")
	}
}

func TestParseAuthCommand(t *testing.T) {
	authType, token, err := parseAuthCommand("auth jwt abc.def.ghi")
	if err != nil || authType != "JWT" || token != "abc.def.ghi" {
		t.Errorf("Unexpected parse: %s %s %v", authType, token, err)
	}
	if _, _, err := parseAuthCommand("SELECT 1"); err == nil {
		t.Error("Expected error for a non-AUTH line")
	}
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte("SELECT 1"))
	if err != nil || req.Query != "SELECT 1" {
		t.Errorf("Expected a bare statement, got %+v %v", req, err)
	}

	req, err = DecodeRequest([]byte(`{"query": "SELECT ?", "args": [1.5, "a", null]}`))
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if req.Query != "SELECT ?" || len(req.Args) != 3 || req.Args[0] != 1.5 || req.Args[1] != "a" || req.Args[2] != nil {
		t.Errorf("Unexpected request: %+v", req)
	}
}

// generateTestCertificate creates a self-signed certificate for localhost
func generateTestCertificate(t *testing.T) (certFile, keyFile string) {
	t.Helper()
	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate private key: %v", err)
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback},
		DNSNames:     []string{"localhost"},
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		t.Fatalf("Failed to write cert file: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
	return certFile, keyFile
}

func TestTLSServerConnection(t *testing.T) {
	certFile, keyFile := generateTestCertificate(t)
	instance, _ := newTestInstance(t)
	server := NewServer(instance, testIdentity)
	if err := server.StartTLS("127.0.0.1:0", certFile, keyFile); err != nil {
		t.Fatalf("Failed to start TLS server: %v", err)
	}
	defer server.Stop()

	certData, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatalf("Failed to read cert: %v", err)
	}
	certPool := x509.NewCertPool()
	certPool.AppendCertsFromPEM(certData)

	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 2 * time.Second}, "tcp", server.Addr(), &tls.Config{
		RootCAs:    certPool,
		ServerName: "localhost",
	})
	if err != nil {
		t.Fatalf("Failed to connect with TLS: %v", err)
	}
	defer conn.Close()

	c := &client{t: t, conn: conn, reader: bufio.NewReader(conn)}
	resp := c.send("CREATE TABLE tlstest (x NUMBER)")
	mustSucceed(t, resp)
	if resp.Type != "mutation" {
		t.Errorf("Expected mutation type, got: %s", resp.Type)
	}

	// an unknown CA is rejected
	if _, err := tls.DialWithDialer(&net.Dialer{Timeout: 2 * time.Second}, "tcp", server.Addr(), &tls.Config{ServerName: "localhost"}); err == nil {
		t.Error("Expected TLS connection to fail with an untrusted certificate")
	}
}

func TestStartTLSMissingCertificate(t *testing.T) {
	instance, _ := newTestInstance(t)
	server := NewServer(instance, testIdentity)
	err := server.StartTLS("127.0.0.1:0", "missing.pem", "missing.key")
	if err == nil || !strings.Contains(err.Error(), "failed to load TLS certificate") {
		t.Errorf("Expected certificate error, got %v", err)
	}
}

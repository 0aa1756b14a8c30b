package security

import (
	"crypto/tls"
	"net/http/httptest"
	"strings"
	"testing"
)

const testSecret = "csrf-secret-for-tests"

func flipBit(s string, i int, bit uint) string {
	b := []byte(s)
	b[i] ^= 1 << bit
	return string(b)
}

func fixedToken(secret string) string {
	nonce := "0123456789abcdef0123456789abcdef"
	return nonce + csrfMAC(nonce, secret)
}

func TestCSRFRoundTrip(t *testing.T) {
	token, err := GenerateCSRFToken(testSecret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("expected 64 characters, got %d", len(token))
	}
	if !ValidateCSRFToken(token, testSecret) {
		t.Fatalf("issued token must validate")
	}
	if ValidateCSRFToken(token, "other-secret") {
		t.Fatalf("token must not validate under another secret")
	}
}

func TestCSRFRejectsMalformed(t *testing.T) {
	valid := fixedToken(testSecret)
	cases := []string{
		"",
		valid[:63],
		valid + "0",
		strings.Repeat("z", 64),
		valid[:32] + strings.Repeat("0", 32),
		"\x00" + valid[1:],
	}
	for _, tc := range cases {
		if ValidateCSRFToken(tc, testSecret) {
			t.Fatalf("expected %q to be invalid", tc)
		}
	}
	if ValidateCSRFToken(valid, "") {
		t.Fatalf("empty secret never validates")
	}
}

func TestCSRFSingleBitFlip(t *testing.T) {
	token := fixedToken(testSecret)
	if !ValidateCSRFToken(token, testSecret) || !ValidateCSRFToken(token, testSecret) {
		t.Fatalf("validation must be deterministic")
	}
	for i := 0; i < len(token); i++ {
		for bit := uint(0); bit < 8; bit++ {
			if ValidateCSRFToken(flipBit(token, i, bit), testSecret) {
				t.Fatalf("flip of byte %d bit %d still validates", i, bit)
			}
		}
	}
	for i := 0; i < len(testSecret); i++ {
		if ValidateCSRFToken(token, flipBit(testSecret, i, 0)) {
			t.Fatalf("flip in secret byte %d still validates", i)
		}
	}
}

func TestWebhookScenario(t *testing.T) {
	payload := []byte(`{"order_id":"x"}`)
	secret := "S"
	sig := SignWebhookPayload(payload, secret)

	if !strings.HasPrefix(sig, "sha256=") || len(sig) != len("sha256=")+64 {
		t.Fatalf("unexpected signature format %q", sig)
	}
	if !VerifyWebhookSignature(payload, sig, secret) {
		t.Fatalf("signature must verify under S")
	}
	for _, other := range []string{"T", "s", "S ", ""} {
		if VerifyWebhookSignature(payload, sig, other) {
			t.Fatalf("signature verified under %q", other)
		}
	}
	for i := range payload {
		altered := []byte(flipBit(string(payload), i, 0))
		if VerifyWebhookSignature(altered, sig, secret) {
			t.Fatalf("altered payload byte %d still verifies", i)
		}
	}
	for i := 0; i < len(sig); i++ {
		if VerifyWebhookSignature(payload, flipBit(sig, i, 1), secret) {
			t.Fatalf("altered signature byte %d still verifies", i)
		}
	}
}

func TestWebhookRejectsLengthMismatch(t *testing.T) {
	payload := []byte(`{"order_id":"x"}`)
	sig := SignWebhookPayload(payload, "S")
	for _, bad := range []string{sig[:len(sig)-1], sig + "0", strings.TrimPrefix(sig, "sha256="), ""} {
		if VerifyWebhookSignature(payload, bad, "S") {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestHeadersFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/me", nil)
	h := HeadersFor(r, false)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
	}
	for k, v := range want {
		if h[k] != v {
			t.Fatalf("%s: expected %q, got %q", k, v, h[k])
		}
	}
	for _, k := range []string{"Content-Security-Policy", "Referrer-Policy"} {
		if h[k] == "" {
			t.Fatalf("%s missing", k)
		}
	}
	for _, feature := range []string{"camera=()", "microphone=()", "geolocation=()"} {
		if !strings.Contains(h["Permissions-Policy"], feature) {
			t.Fatalf("Permissions-Policy must disable %s", feature)
		}
	}
	if _, ok := h["Strict-Transport-Security"]; ok {
		t.Fatalf("HSTS must not be sent over plain HTTP")
	}

	r.TLS = &tls.ConnectionState{}
	if HeadersFor(r, false)["Strict-Transport-Security"] == "" {
		t.Fatalf("HSTS expected over TLS")
	}
}

func TestForwardedProtoNeedsTrustedProxy(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	if IsSecure(r, false) {
		t.Fatalf("untrusted X-Forwarded-Proto must be ignored")
	}
	if !IsSecure(r, true) {
		t.Fatalf("trusted X-Forwarded-Proto should mark the request secure")
	}
}

func TestCORS(t *testing.T) {
	dev := NewCORS(false, nil)
	if dev.HeadersFor("https://evil.example")["Access-Control-Allow-Origin"] != "*" {
		t.Fatalf("development allows every origin")
	}

	prod := NewCORS(true, []string{"https://app.example.com", " "})
	h := prod.HeadersFor("https://app.example.com")
	if h["Access-Control-Allow-Origin"] != "https://app.example.com" || h["Vary"] != "Origin" {
		t.Fatalf("unexpected production headers %+v", h)
	}
	if _, ok := prod.HeadersFor("https://evil.example")["Access-Control-Allow-Origin"]; ok {
		t.Fatalf("unknown origin must not be allowed in production")
	}
	if _, ok := prod.HeadersFor("")["Access-Control-Allow-Origin"]; ok {
		t.Fatalf("missing origin must not be allowed in production")
	}
}

func TestContainsSuspiciousContent(t *testing.T) {
	flagged := []string{
		`<script>alert(1)</script>`,
		`< SCRIPT src=x>`,
		`[click](javascript:alert(1))`,
		`<img src=x onerror=alert(1)>`,
		`<div onclick = "x()">`,
		`eval (payload)`,
		`fetch('/steal?c=' + document.cookie)`,
		`localStorage.getItem('token')`,
		`<iframe src="//evil">`,
	}
	for _, s := range flagged {
		if !ContainsSuspiciousContent(s) {
			t.Fatalf("expected %q to be flagged", s)
		}
	}

	clean := []string{
		"# My Project\n\nA README with `code` and [links](https://example.com).",
		"Use the evaluation harness to score models.",
		"Scripts live in ./scripts",
		"",
	}
	for _, s := range clean {
		if ContainsSuspiciousContent(s) {
			t.Fatalf("expected %q to pass", s)
		}
	}
}

func TestStripMarkup(t *testing.T) {
	cases := map[string]string{
		"plain text":                                  "plain text",
		"<b>bold</b> and <i>italic</i>":               "bold and italic",
		"hi<script>alert(1)</script> there":           "hi there",
		"<style>body{}</style>Readme":                 "Readme",
		`<a href="javascript:x" onclick="y">link</a>`: "link",
		"a &amp; b":                                   "a & b",
	}
	for in, want := range cases {
		if got := StripMarkup(in); got != want {
			t.Fatalf("StripMarkup(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := SanitizeInput("  hello\x00\x07 world\n\tok  "); got != "hello world\n\tok" {
		t.Fatalf("unexpected sanitized text %q", got)
	}
}

package authcore

import (
	"encoding/base32"
	"strings"
	"testing"
	"time"
)

// RFC 6238 appendix B test secret, 20 ASCII digit bytes.
var rfcSecret = base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte("12345678901234567890"))

func rfcManager(skew int) *totpManager {
	return newTOTPManager(TOTPConfig{
		Issuer:    "authcore",
		Digits:    6,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      skew,
	})
}

func TestVerifyCodeAgainstReferenceVectors(t *testing.T) {
	// RFC 6238 appendix B vectors truncated to 6 digits.
	cases := []struct {
		unix int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
		{20000000000, "353130"},
	}

	m := rfcManager(0)
	for _, tc := range cases {
		ok, err := m.VerifyCode(rfcSecret, tc.code, time.Unix(tc.unix, 0))
		if err != nil {
			t.Fatalf("verify at %d failed: %v", tc.unix, err)
		}
		if !ok {
			t.Fatalf("expected code %s valid at %d", tc.code, tc.unix)
		}
	}
}

func TestVerifyCodeSkewWindow(t *testing.T) {
	m := rfcManager(1)

	// Code for T=59 (counter 1) is still valid one step later (counter 2)
	// with skew 1, but not two steps later.
	ok, err := m.VerifyCode(rfcSecret, "287082", time.Unix(89, 0))
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected previous-step code accepted within skew")
	}

	ok, err = m.VerifyCode(rfcSecret, "287082", time.Unix(149, 0))
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if ok {
		t.Fatal("expected code outside skew window rejected")
	}
}

func TestVerifyCodeRejectsMalformedInput(t *testing.T) {
	m := rfcManager(1)
	now := time.Unix(59, 0)

	for _, code := range []string{"", "28708", "2870822", "28708a", "  287082  x"} {
		ok, err := m.VerifyCode(rfcSecret, code, now)
		if err != nil {
			t.Fatalf("verify of %q errored: %v", code, err)
		}
		if ok {
			t.Fatalf("expected %q rejected", code)
		}
	}

	if _, err := m.VerifyCode("not-base32!!", "287082", now); err == nil {
		t.Fatal("expected error for undecodable secret")
	}
}

func TestGenerateSecretIsFreshBase32(t *testing.T) {
	m := rfcManager(1)

	first, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	second, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct secrets")
	}

	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(first)
	if err != nil {
		t.Fatalf("secret is not base32: %v", err)
	}
	if len(raw) != totpSecretBytes {
		t.Fatalf("expected %d secret bytes, got %d", totpSecretBytes, len(raw))
	}
}

func TestProvisionURIShape(t *testing.T) {
	m := rfcManager(1)
	uri := m.ProvisionURI(rfcSecret, "alice@example.com")

	if !strings.HasPrefix(uri, "otpauth://totp/authcore:alice@example.com?") {
		t.Fatalf("unexpected uri prefix: %s", uri)
	}
	for _, fragment := range []string{"secret=" + rfcSecret, "issuer=authcore", "digits=6", "period=30", "algorithm=SHA1"} {
		if !strings.Contains(uri, fragment) {
			t.Fatalf("expected %q in uri %s", fragment, uri)
		}
	}
}

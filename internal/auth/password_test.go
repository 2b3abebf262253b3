package auth

import "testing"

// Cost 4 is the bcrypt minimum — fast enough for tests.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(4)
}

func TestHashAndVerify(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "" {
		t.Fatal("Hash() returned empty string")
	}
	if hash == "correct horse battery staple" {
		t.Fatal("Hash() returned the plaintext")
	}

	if err := ps.Verify(hash, "correct horse battery staple"); err != nil {
		t.Errorf("Verify() with the right password: %v", err)
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	ps := newTestPasswordService()

	hash, _ := ps.Hash("right-password")
	if err := ps.Verify(hash, "wrong-password"); err == nil {
		t.Error("Verify() should fail for the wrong password")
	}
}

func TestHash_SamePasswordDifferentHashes(t *testing.T) {
	ps := newTestPasswordService()

	// bcrypt salts every hash, so two hashes of the same input differ.
	h1, _ := ps.Hash("same-password")
	h2, _ := ps.Hash("same-password")
	if h1 == h2 {
		t.Error("Hash() should produce different hashes for the same input (random salt)")
	}
}

func TestHash_TooLong(t *testing.T) {
	ps := newTestPasswordService()

	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := ps.Hash(string(long)); err == nil {
		t.Error("Hash() should reject passwords longer than 72 bytes")
	}
}

func TestVerify_GarbageHash(t *testing.T) {
	ps := newTestPasswordService()
	if err := ps.Verify("not-a-bcrypt-hash", "whatever"); err == nil {
		t.Error("Verify() should fail for a malformed hash")
	}
}

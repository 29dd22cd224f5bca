package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestDigest(t *testing.T) {
	sum := sha256.Sum256([]byte("tte@123"))
	want := hex.EncodeToString(sum[:])

	if got := Digest("tte@123"); got != want {
		t.Fatalf("Digest = %s, want %s", got, want)
	}

	for _, in := range []string{"", "a", strings.Repeat("x", 4096)} {
		if got := len(Digest(in)); got != 64 {
			t.Errorf("len(Digest(%d bytes)) = %d, want 64", len(in), got)
		}
	}
}

func TestPassengerFingerprintIsOrderIndependent(t *testing.T) {
	set := []Identity{
		{Name: "Ravi", Age: 41, Gender: "M"},
		{Name: "Anita", Age: 38, Gender: "F"},
		{Name: "Kiran", Age: 9, Gender: "O"},
	}

	permutations := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}

	want := PassengerFingerprint(set)
	for _, p := range permutations {
		shuffled := []Identity{set[p[0]], set[p[1]], set[p[2]]}
		if got := PassengerFingerprint(shuffled); got != want {
			t.Errorf("permutation %v: fingerprint %s, want %s", p, got, want)
		}
	}
}

func TestPassengerFingerprintFormat(t *testing.T) {
	got := PassengerFingerprint([]Identity{
		{Name: "Bob", Age: 30, Gender: "M"},
		{Name: "Alice", Age: 29, Gender: "F"},
	})

	if want := Digest("alice:29:F|bob:30:M"); got != want {
		t.Fatalf("fingerprint = %s, want %s", got, want)
	}
}

func TestPassengerFingerprintDoesNotReorderInput(t *testing.T) {
	in := []Identity{{Name: "Zed", Age: 50, Gender: "M"}, {Name: "Amy", Age: 20, Gender: "F"}}
	PassengerFingerprint(in)

	if in[0].Name != "Zed" {
		t.Fatalf("input was reordered: %+v", in)
	}
}

func TestDeviceFingerprint(t *testing.T) {
	got, err := DeviceFingerprint("12951", "2026-11-02", "Asha")
	if err != nil {
		t.Fatalf("DeviceFingerprint: %v", err)
	}
	if want := Digest("12951_2026-11-02_Asha_my_secret"); got != want {
		t.Fatalf("hash = %s, want %s", got, want)
	}

	_, err = DeviceFingerprint("12951", "2026-11-02", "")
	if !errors.Is(err, ErrNoPassengers) {
		t.Fatalf("err = %v, want ErrNoPassengers", err)
	}

	if legacy := OrEmpty(DeviceFingerprint("12951", "2026-11-02", "")); legacy != "" {
		t.Fatalf("OrEmpty = %q, want empty", legacy)
	}
}

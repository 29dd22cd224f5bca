// Package hashing derives the digests railid uses as identities: password
// hashes, the passenger-set "biometric" fingerprint and the device
// fingerprint a traveller returns to a conductor.
//
// None of these are real credentials. The digests are unsalted SHA-256 and the
// device fingerprint mixes in a fixed secret.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const deviceSecret = "my_secret"

// ErrNoPassengers is returned when a device fingerprint is requested for a
// ticket without passengers.
var ErrNoPassengers = errors.New("hashing: ticket has no passengers")

// Identity is the part of a passenger that feeds the fingerprint.
type Identity struct {
	Name   string
	Age    int
	Gender string
}

// Digest function
func Digest(input string) string {
	sum := sha256.Sum256([]byte(input))

	return hex.EncodeToString(sum[:])
}

// PassengerFingerprint hashes a passenger set independently of its order.
// Passengers are stable-sorted by name and joined as name:age:gender with the
// name lower-cased.
func PassengerFingerprint(ids []Identity) string {
	sorted := make([]Identity, len(ids))
	copy(sorted, ids)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	parts := make([]string, 0, len(sorted))
	for _, id := range sorted {
		parts = append(parts, strings.ToLower(id.Name)+":"+strconv.Itoa(id.Age)+":"+id.Gender)
	}

	return Digest(strings.Join(parts, "|"))
}

// DeviceFingerprint returns the hash a traveller device sends back in a
// VERIFIED frame.
func DeviceFingerprint(trainNumber, date, firstPassenger string) (string, error) {
	if firstPassenger == "" {
		return "", ErrNoPassengers
	}

	key := fmt.Sprintf("%s_%s_%s_%s", trainNumber, date, firstPassenger, deviceSecret)
	return Digest(key), nil
}

// OrEmpty collapses a failed hash into the empty string, for callers where an
// empty hash already means "no match".
func OrEmpty(hash string, err error) string {
	if err != nil {
		return ""
	}
	return hash
}

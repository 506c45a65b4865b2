// Package id generates identifiers for calendar items.
//
// Two formation rules exist. Confirmed records carry an opaque id assigned by
// the backend. Items created while offline (or whose remote create failed)
// carry a local-origin id: "local_<unix-millis>_<nanoid>". The prefix is the
// only thing that tells the sync layer an item has never reached the server.
package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// LocalPrefix marks ids generated on the device. The backend never issues it.
const LocalPrefix = "local_"

// localSuffixAlphabet avoids '_' and '-' so the id splits cleanly on '_'.
const localSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const localSuffixLen = 10

// NewLocal creates a local-origin id stamped with now.
// The nanoid suffix keeps ids unique when several items are created in the same millisecond.
func NewLocal(now time.Time) (string, error) {
	suffix, err := gonanoid.Generate(localSuffixAlphabet, localSuffixLen)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return LocalPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix, nil
}

// MustNewLocal is like NewLocal but panics if the system has no entropy.
func MustNewLocal(now time.Time) string {
	id, err := NewLocal(now)
	if err != nil {
		panic(fmt.Sprintf("failed to generate local ID: %v", err))
	}
	return id
}

// IsLocal reports whether id was generated on the device.
func IsLocal(id string) bool {
	return strings.HasPrefix(id, LocalPrefix)
}

// NewServer creates an id for a record confirmed by the backend.
func NewServer() string {
	return uuid.NewString()
}

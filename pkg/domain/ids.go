// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "photoportal/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing UserID where TenantID is expected.
type (
	TenantID     uuid.UUID
	UserID       uuid.UUID
	PhotoID      uuid.UUID
	CredentialID uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParsePhotoID(s string) (PhotoID, error) {
	id, err := parseUUID(s, "photo ID")
	return PhotoID(id), err
}

func ParseCredentialID(s string) (CredentialID, error) {
	id, err := parseUUID(s, "credential ID")
	return CredentialID(id), err
}

// String methods - for logging and storage keys.

func (id TenantID) String() string     { return uuid.UUID(id).String() }
func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id PhotoID) String() string      { return uuid.UUID(id).String() }
func (id CredentialID) String() string { return uuid.UUID(id).String() }

// Text marshaling - the defined types do not inherit uuid.UUID's methods, so
// without these the IDs would render as raw byte arrays in JSON bodies and
// JSON log output.

func (id TenantID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id PhotoID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id CredentialID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *TenantID) UnmarshalText(b []byte) error {
	parsed, err := parseUUID(string(b), "tenant ID")
	if err != nil {
		return err
	}
	*id = TenantID(parsed)
	return nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := parseUUID(string(b), "user ID")
	if err != nil {
		return err
	}
	*id = UserID(parsed)
	return nil
}

func (id *PhotoID) UnmarshalText(b []byte) error {
	parsed, err := parseUUID(string(b), "photo ID")
	if err != nil {
		return err
	}
	*id = PhotoID(parsed)
	return nil
}

func (id *CredentialID) UnmarshalText(b []byte) error {
	parsed, err := parseUUID(string(b), "credential ID")
	if err != nil {
		return err
	}
	*id = CredentialID(parsed)
	return nil
}

// IsNil checks - used for service-layer validation.

func (id TenantID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id PhotoID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
// Nil UUIDs are allowed here; use IsNil() at the service layer so store lookups
// can return proper "not found" errors for consistency.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return parsed, nil
}

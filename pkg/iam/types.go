// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package iam

import "time"

// CredentialStatus is the lifecycle state of an access key.
type CredentialStatus string

const (
	StatusActive   CredentialStatus = "active"
	StatusInactive CredentialStatus = "inactive"
)

// Credential is one access key / secret key pair.
type Credential struct {
	AccessKey   string           `json:"access_key"`
	SecretKey   string           `json:"secret_key"`
	Admin       bool             `json:"admin,omitempty"`
	Status      CredentialStatus `json:"status,omitempty"`
	CreatedAt   time.Time        `json:"created_at,omitempty"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	Description string           `json:"description,omitempty"`
}

// IsActive reports whether the credential may be used right now.
func (c *Credential) IsActive() bool {
	if c.Status != "" && c.Status != StatusActive {
		return false
	}
	if c.ExpiresAt != nil && time.Now().After(*c.ExpiresAt) {
		return false
	}
	return true
}

// Identity is a named principal owning one or more credentials.
type Identity struct {
	Name        string        `json:"name"`
	Credentials []*Credential `json:"credentials"`
	Disabled    bool          `json:"disabled,omitempty"`
}

// IsAdmin reports whether any active credential carries the admin flag.
func (i *Identity) IsAdmin() bool {
	for _, cred := range i.Credentials {
		if cred.Admin && cred.IsActive() {
			return true
		}
	}
	return false
}

// AdminIdentity is the built-in principal used when authentication is
// disabled. Every request runs as this identity.
func AdminIdentity() *Identity {
	return &Identity{
		Name: "admin",
		Credentials: []*Credential{
			{AccessKey: "admin", Admin: true, Status: StatusActive},
		},
	}
}

// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package iam

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrAccessKeyNotFound = errors.New("access key not found")
)

// CredentialStore persists identities and their access keys.
type CredentialStore interface {
	// GetUserByAccessKey resolves an access key to its identity and
	// the specific credential that matched.
	GetUserByAccessKey(ctx context.Context, accessKey string) (*Identity, *Credential, error)

	CreateUser(ctx context.Context, identity *Identity) error
	GetUser(ctx context.Context, username string) (*Identity, error)
	UpdateUser(ctx context.Context, identity *Identity) error
	DeleteUser(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]string, error)

	CreateAccessKey(ctx context.Context, username string, cred *Credential) error
	DeleteAccessKey(ctx context.Context, username string, accessKey string) error
}

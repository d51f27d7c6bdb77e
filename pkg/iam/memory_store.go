// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package iam

import (
	"context"
	"sync"
)

// MemoryStore keeps identities in process memory. Useful for tests and
// for deployments that configure static credentials at startup.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*Identity
	accessKeys map[string]string // accessKey -> username
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*Identity),
		accessKeys: make(map[string]string),
	}
}

func (s *MemoryStore) GetUserByAccessKey(ctx context.Context, accessKey string) (*Identity, *Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	username, exists := s.accessKeys[accessKey]
	if !exists {
		return nil, nil, ErrAccessKeyNotFound
	}

	identity, exists := s.users[username]
	if !exists {
		return nil, nil, ErrAccessKeyNotFound
	}

	for _, cred := range identity.Credentials {
		if cred.AccessKey == accessKey {
			return identity, cred, nil
		}
	}

	return nil, nil, ErrAccessKeyNotFound
}

func (s *MemoryStore) CreateUser(ctx context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[identity.Name]; exists {
		return ErrUserAlreadyExists
	}

	s.users[identity.Name] = identity
	for _, cred := range identity.Credentials {
		s.accessKeys[cred.AccessKey] = identity.Name
	}
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, username string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, exists := s.users[username]
	if !exists {
		return nil, ErrUserNotFound
	}
	return identity, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.users[identity.Name]
	if !exists {
		return ErrUserNotFound
	}

	for _, cred := range old.Credentials {
		delete(s.accessKeys, cred.AccessKey)
	}

	s.users[identity.Name] = identity
	for _, cred := range identity.Credentials {
		s.accessKeys[cred.AccessKey] = identity.Name
	}
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, exists := s.users[username]
	if !exists {
		return ErrUserNotFound
	}

	for _, cred := range identity.Credentials {
		delete(s.accessKeys, cred.AccessKey)
	}
	delete(s.users, username)
	return nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usernames := make([]string, 0, len(s.users))
	for name := range s.users {
		usernames = append(usernames, name)
	}
	return usernames, nil
}

func (s *MemoryStore) CreateAccessKey(ctx context.Context, username string, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, exists := s.users[username]
	if !exists {
		return ErrUserNotFound
	}

	if _, exists := s.accessKeys[cred.AccessKey]; exists {
		return ErrUserAlreadyExists
	}

	identity.Credentials = append(identity.Credentials, cred)
	s.accessKeys[cred.AccessKey] = username
	return nil
}

func (s *MemoryStore) DeleteAccessKey(ctx context.Context, username string, accessKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, exists := s.users[username]
	if !exists {
		return ErrUserNotFound
	}

	newCreds := make([]*Credential, 0, len(identity.Credentials))
	found := false
	for _, cred := range identity.Credentials {
		if cred.AccessKey == accessKey {
			found = true
			delete(s.accessKeys, accessKey)
		} else {
			newCreds = append(newCreds, cred)
		}
	}

	if !found {
		return ErrAccessKeyNotFound
	}

	identity.Credentials = newCreds
	return nil
}

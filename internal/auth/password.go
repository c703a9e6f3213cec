package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// credentialsKey holds email -> bcrypt hash for accounts created while
// password verification is on. It is kept apart from profiles so hashes are
// never returned by a table read.
const credentialsKey = "credentials"

func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func checkPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

func (s *Simulator) credentials(ctx context.Context) map[string]string {
	creds := make(map[string]string)
	s.env.Store.ReadInto(ctx, credentialsKey, &creds)
	return creds
}

func (s *Simulator) storeCredential(ctx context.Context, email, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	var res error
	s.env.Store.Exclusive(func() {
		creds := s.credentials(ctx)
		creds[email] = hash
		if w := s.env.Store.Write(ctx, credentialsKey, creds); !w.Persisted {
			res = errors.Join(errors.New("credential not persisted"), w.Err)
		}
	})
	return res
}

// passwordAccepted applies strict mode: an account with a stored hash must
// present the matching password. Accounts without one accept any password.
func (s *Simulator) passwordAccepted(ctx context.Context, email, password string) bool {
	if !s.verifyPasswords {
		return true
	}
	hash, ok := s.credentials(ctx)[email]
	if !ok {
		return true
	}
	return checkPassword(password, hash)
}

// Package prefs persists per-user boolean flags, such as "remember me", in
// a local pebble database.
package prefs

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

const FlagRememberMe = "remember_me"

type Store struct {
	db *pebble.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func flagKey(userID, flag string) []byte {
	return []byte("flag:" + userID + ":" + flag)
}

// Flag reports a stored flag. A flag that was never set is false.
func (s *Store) Flag(userID, flag string) (bool, error) {
	v, closer, err := s.db.Get(flagKey(userID, flag))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer closer.Close()
	return len(v) == 1 && v[0] == 1, nil
}

func (s *Store) SetFlag(userID, flag string, value bool) error {
	b := byte(0)
	if value {
		b = 1
	}
	return s.db.Set(flagKey(userID, flag), []byte{b}, pebble.Sync)
}

// Forget removes every flag of the user.
func (s *Store) Forget(userID string) error {
	prefix := []byte("flag:" + userID + ":")
	end := append([]byte("flag:"+userID), ':'+1)
	return s.db.DeleteRange(prefix, end, pebble.Sync)
}

func (s *Store) RememberMe(userID string) (bool, error) {
	return s.Flag(userID, FlagRememberMe)
}

func (s *Store) SetRememberMe(userID string, remember bool) error {
	return s.SetFlag(userID, FlagRememberMe, remember)
}

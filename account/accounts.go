// Package account keeps traveller credentials in the local store and checks
// conductor logins.
package account

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/jlynch25/railid/store"
	"github.com/sirupsen/logrus"
)

// Store keys.
const (
	UsersKey       = "users"
	CurrentUserKey = "userId"
)

var (
	ErrMissingField      = errors.New("account: all fields required")
	ErrPasswordMismatch  = errors.New("account: passwords do not match")
	ErrUserExists        = errors.New("account: user id already exists")
	ErrUserNotFound      = errors.New("account: user not found")
	ErrIncorrectPassword = errors.New("account: incorrect password")
	ErrNotSignedIn       = errors.New("account: no user signed in")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Profile is one entry of the user map. Password holds the hasher's output.
type Profile struct {
	Name     string `json:"name"`
	Number   string `json:"number"`
	Email    string `json:"email"`
	DOB      string `json:"dob"`
	Password string `json:"password"`
}

// SignUp is the registration form.
type SignUp struct {
	UserID          string
	Name            string
	Number          string
	Email           string
	DOB             string
	Password        string
	ConfirmPassword string
}

func (s SignUp) validate() error {
	for _, v := range []string{s.UserID, s.Name, s.Number, s.Email, s.DOB, s.Password, s.ConfirmPassword} {
		if strings.TrimSpace(v) == "" {
			return ErrMissingField
		}
	}
	if s.Password != s.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// Accounts manages the user map and the signed-in user.
type Accounts struct {
	kv     store.KV
	hasher PasswordHasher
	log    *logrus.Entry
}

// Option configures Accounts.
type Option func(*Accounts)

// WithHasher replaces the default SHA-256 password hasher.
func WithHasher(h PasswordHasher) Option {
	return func(a *Accounts) { a.hasher = h }
}

// WithLogger function
func WithLogger(log *logrus.Entry) Option {
	return func(a *Accounts) { a.log = log }
}

// New function
func New(kv store.KV, opts ...Option) *Accounts {
	a := &Accounts{
		kv:     kv,
		hasher: SHA256Hasher{},
		log:    logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Accounts) users() (map[string]Profile, error) {
	raw, err := a.kv.Get(UsersKey)
	if errors.Is(err, store.ErrKeyNotFound) {
		return map[string]Profile{}, nil
	}
	if err != nil {
		return nil, err
	}

	users := map[string]Profile{}
	if err := json.UnmarshalFromString(raw, &users); err != nil {
		return nil, fmt.Errorf("%w: decode users: %v", store.ErrCorrupt, err)
	}
	return users, nil
}

func (a *Accounts) saveUsers(users map[string]Profile) error {
	raw, err := json.MarshalToString(users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	return a.kv.Set(UsersKey, raw)
}

// Register adds a traveller. It does not sign them in.
func (a *Accounts) Register(s SignUp) error {
	if err := s.validate(); err != nil {
		return err
	}

	users, err := a.users()
	if err != nil {
		return err
	}
	if _, ok := users[s.UserID]; ok {
		return fmt.Errorf("%w: %s", ErrUserExists, s.UserID)
	}

	hash, err := a.hasher.Hash(s.Password)
	if err != nil {
		return err
	}
	users[s.UserID] = Profile{
		Name:     s.Name,
		Number:   s.Number,
		Email:    s.Email,
		DOB:      s.DOB,
		Password: hash,
	}
	if err := a.saveUsers(users); err != nil {
		return err
	}

	a.log.WithField("user", s.UserID).Info("traveller registered")
	return nil
}

// Login checks the password and records userID as the current user.
func (a *Accounts) Login(userID, password string) (Profile, error) {
	users, err := a.users()
	if err != nil {
		return Profile{}, err
	}

	p, ok := users[userID]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if !a.hasher.Verify(p.Password, password) {
		a.log.WithField("user", userID).Warn("login rejected")
		return Profile{}, ErrIncorrectPassword
	}

	if err := a.kv.Set(CurrentUserKey, userID); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Logout clears the current user.
func (a *Accounts) Logout() error {
	return a.kv.Set(CurrentUserKey, "")
}

// Current returns the signed-in user id and profile.
func (a *Accounts) Current() (string, Profile, error) {
	id, err := a.kv.Get(CurrentUserKey)
	if errors.Is(err, store.ErrKeyNotFound) || (err == nil && id == "") {
		return "", Profile{}, ErrNotSignedIn
	}
	if err != nil {
		return "", Profile{}, err
	}

	users, err := a.users()
	if err != nil {
		return "", Profile{}, err
	}
	p, ok := users[id]
	if !ok {
		return "", Profile{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return id, p, nil
}

// UpdateProfile renames the signed-in user and, when newPassword is not blank,
// replaces their password.
func (a *Accounts) UpdateProfile(name, newPassword string) error {
	id, p, err := a.Current()
	if err != nil {
		return err
	}

	if strings.TrimSpace(name) != "" {
		p.Name = name
	}
	if strings.TrimSpace(newPassword) != "" {
		if p.Password, err = a.hasher.Hash(newPassword); err != nil {
			return err
		}
	}

	users, err := a.users()
	if err != nil {
		return err
	}
	users[id] = p
	return a.saveUsers(users)
}

// Conductor holds the single configured conductor credential.
type Conductor struct {
	User     string
	Password string
}

// Login function
func (c Conductor) Login(user, password string) error {
	if c.User == "" || user != c.User {
		return fmt.Errorf("%w: %s", ErrUserNotFound, user)
	}
	if password != c.Password {
		return ErrIncorrectPassword
	}
	return nil
}

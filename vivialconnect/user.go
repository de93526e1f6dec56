package vivialconnect

import (
	"context"
	"fmt"
	"net/http"

	"github.com/s0up4200/vivialconnect/inflect"
	"github.com/s0up4200/vivialconnect/requestor"
	"github.com/s0up4200/vivialconnect/resource"
)

var (
	UserKind       = resource.NewKind("User")
	CredentialKind = resource.NewKind("Credential")
)

// User is a login on the account
type User struct {
	*resource.Resource
}

func wrapUser(r *resource.Resource) *User {
	return &User{Resource: r}
}

// Username returns the login name
func (u *User) Username() string { return u.String("username") }

// Email returns the user's email address
func (u *User) Email() string { return u.String("email") }

// FullName joins first and last name
func (u *User) FullName() string {
	first, last := u.String("first_name"), u.String("last_name")
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}

// Credential is an API key pair belonging to a user
type Credential struct {
	*resource.Resource
	userID any
}

// UserID returns the id of the owning user
func (c *Credential) UserID() any { return c.userID }

// Name returns the credential label
func (c *Credential) Name() string { return c.String("name") }

// APIKey returns the public half of the key pair
func (c *Credential) APIKey() string { return c.String("api_key") }

// UserService manages users and their API credentials
type UserService struct {
	crud[*User]
}

func (s *UserService) credentialsPath(userID any, suffix string) (string, error) {
	if resource.FormatID(userID) == "" {
		return "", fmt.Errorf("%w: user id is required", requestor.ErrResource)
	}
	return s.kind.CustomPath(s.c.AccountID(), "", userID, "/profile/credentials"+suffix), nil
}

func newCredential(userID any, attrs map[string]any) *Credential {
	return &Credential{Resource: resource.New(CredentialKind, attrs), userID: userID}
}

// Credentials lists the API credentials of u
func (s *UserService) Credentials(ctx context.Context, u *User) ([]*Credential, error) {
	path, err := s.credentialsPath(u.ID(), "")
	if err != nil {
		return nil, err
	}
	body, err := s.c.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	wrapper, _ := inflect.RemoveRoot(body).(map[string]any)
	items, _ := wrapper[CredentialKind.Plural].([]any)
	creds := make([]*Credential, 0, len(items))
	for _, item := range items {
		attrs, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected credential %T", requestor.ErrResource, item)
		}
		creds = append(creds, newCredential(u.ID(), attrs))
	}
	return creds, nil
}

// Credential fetches one credential of u. It returns nil and no error when
// the response carries no credential.
func (s *UserService) Credential(ctx context.Context, u *User, id any) (*Credential, error) {
	path, err := s.credentialsPath(u.ID(), "/"+resource.FormatID(id))
	if err != nil {
		return nil, err
	}
	body, err := s.c.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get credential %s: %w", resource.FormatID(id), err)
	}
	wrapper, _ := inflect.RemoveRoot(body).(map[string]any)
	attrs, ok := wrapper[CredentialKind.Singular].(map[string]any)
	if !ok {
		return nil, nil
	}
	return newCredential(u.ID(), attrs), nil
}

// CreateCredential creates a credential for u
func (s *UserService) CreateCredential(ctx context.Context, u *User, name string) (*Credential, error) {
	attrs := map[string]any{}
	if name != "" {
		attrs["name"] = name
	}
	cred := newCredential(u.ID(), attrs)
	if err := s.SaveCredential(ctx, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// SaveCredential creates or updates a credential. The body is nested as
// {"user": {"credential": {...}}}.
func (s *UserService) SaveCredential(ctx context.Context, cred *Credential) error {
	payload := map[string]any{UserKind.Singular: cred.Wrap(CredentialKind.Singular)}

	var (
		body any
		err  error
	)
	if cred.IsNew() {
		path, perr := s.credentialsPath(cred.userID, "")
		if perr != nil {
			return perr
		}
		body, err = s.c.Do(ctx, http.MethodPost, path, nil, payload)
	} else {
		path, perr := s.credentialsPath(cred.userID, "/"+cred.IDString())
		if perr != nil {
			return perr
		}
		body, err = s.c.Do(ctx, http.MethodPut, path, nil, payload)
	}
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	wrapper, _ := inflect.RemoveRoot(body).(map[string]any)
	if attrs, ok := wrapper[CredentialKind.Singular].(map[string]any); ok {
		cred.Update(attrs)
	}
	return nil
}

// DestroyCredential deletes a credential
func (s *UserService) DestroyCredential(ctx context.Context, cred *Credential) error {
	if cred.IsNew() {
		return fmt.Errorf("%w: cannot destroy unsaved credential", requestor.ErrResource)
	}
	path, err := s.credentialsPath(cred.userID, "/"+cred.IDString())
	if err != nil {
		return err
	}
	if _, err := s.c.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to destroy credential %s: %w", cred.IDString(), err)
	}
	return nil
}

// CountCredentials returns the number of credentials of u
func (s *UserService) CountCredentials(ctx context.Context, u *User) (int, error) {
	path, err := s.credentialsPath(u.ID(), "/count")
	if err != nil {
		return 0, err
	}
	body, err := s.c.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count credentials: %w", err)
	}
	return resource.ToInt(inflect.RemoveRoot(body))
}

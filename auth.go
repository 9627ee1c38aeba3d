package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Token is the credential issued by the login endpoint.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// User is the public user record returned by the API.
type User struct {
	ID         int       `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	UserTypeID int       `json:"user_type_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	UserTypeID      int    `json:"user_type_id,omitempty"`
}

// UserUpdate carries the profile fields to change. Nil fields are omitted
// so the server keeps their current values.
type UserUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// PasswordChange is the payload for changing the account password.
type PasswordChange struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

// Message is the generic acknowledgement returned by mutation endpoints.
type Message struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SessionInfo describes one active server-side session.
type SessionInfo struct {
	ID           int       `json:"id"`
	TokenPreview string    `json:"token_preview"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsCurrent    bool      `json:"is_current"`
}

// FileUpload describes an uploaded file.
type FileUpload struct {
	ID         int       `json:"id"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"file_path"`
	FileType   string    `json:"file_type"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Login exchanges credentials for a token. The login endpoint speaks the
// OAuth2 password flow, so credentials go URL-encoded under the username
// and password fields. On success the token is persisted to the session
// store when one is configured.
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	req := &Request{
		Method:   http.MethodPost,
		Endpoint: EndpointLogin,
		FormData: map[string]string{
			"username": email,
			"password": password,
		},
	}

	var token Token
	if err := c.Do(ctx, req, &token); err != nil {
		return nil, err
	}

	if c.options.session != nil {
		if err := c.options.session.SetToken(token.AccessToken); err != nil {
			c.options.requestLogger.Warnf("storing session token: %v", err)
		}
	}

	return &token, nil
}

// Register creates a new account and returns the created user.
func (c *Client) Register(ctx context.Context, reg *RegisterRequest) (*User, error) {
	var user User
	if err := c.Post(ctx, EndpointRegister, reg, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me fetches the authenticated user's profile and refreshes the cached
// user record.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.Get(ctx, EndpointMe, &user); err != nil {
		return nil, err
	}

	c.cacheUser(&user)
	return &user, nil
}

// UpdateProfile updates profile fields and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, update *UserUpdate) (*User, error) {
	var user User
	if err := c.Put(ctx, EndpointMe, update, &user); err != nil {
		return nil, err
	}

	c.cacheUser(&user)
	return &user, nil
}

// ChangePassword changes the account password.
func (c *Client) ChangePassword(ctx context.Context, change *PasswordChange) (*Message, error) {
	var msg Message
	if err := c.Post(ctx, EndpointChangePassword, change, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Logout revokes the current server-side session and clears the local one.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.Delete(ctx, EndpointLogout, nil); err != nil {
		return err
	}
	return c.clearSession()
}

// LogoutAll revokes every server-side session for the account and clears
// the local one.
func (c *Client) LogoutAll(ctx context.Context) error {
	if err := c.Delete(ctx, EndpointLogoutAll, nil); err != nil {
		return err
	}
	return c.clearSession()
}

// Sessions lists the account's active server-side sessions.
func (c *Client) Sessions(ctx context.Context) ([]SessionInfo, error) {
	var sessions []SessionInfo
	if err := c.Get(ctx, EndpointSessions, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// RevokeSession revokes one server-side session by id.
func (c *Client) RevokeSession(ctx context.Context, sessionID int) (*Message, error) {
	var msg Message
	err := c.Delete(ctx, EndpointRevokeSession, &msg,
		WithPathParam("session_id", strconv.Itoa(sessionID)))
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// UploadFile uploads a file into a project via a multipart request. The
// content is buffered in memory before the first attempt so retries send
// identical bytes.
func (c *Client) UploadFile(ctx context.Context, projectID int, filename string, content io.Reader) (*FileUpload, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, &Error{
			Kind:    KindUnknown,
			Message: fmt.Sprintf("reading upload content: %v", err),
			cause:   err,
		}
	}

	fields := map[string]string{
		"project_id": strconv.Itoa(projectID),
	}
	files := []FormFile{
		{Field: "file", Name: filename, Content: data},
	}

	var upload FileUpload
	if err := c.PostForm(ctx, EndpointUploadFile, fields, files, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}

func (c *Client) cacheUser(user *User) {
	if c.options.session == nil {
		return
	}
	if err := c.options.session.SetUser(user); err != nil {
		c.options.requestLogger.Warnf("caching user record: %v", err)
	}
}

func (c *Client) clearSession() error {
	if c.options.session == nil {
		return nil
	}
	return c.options.session.Clear()
}

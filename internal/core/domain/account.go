package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Account is one player identity driven by the farmer.
type Account struct {
	// Index is the position in the account source; it binds the account to
	// the proxy at the same position.
	Index    int
	Label    string
	InitData string
	ProxyURL string
}

// TelegramUser is the subset of the initData "user" payload we read.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// ParseUser decodes the "user" parameter embedded in initData.
func ParseUser(initData string) (*TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("parse init data: %w", err)
	}

	raw := values.Get("user")
	if raw == "" {
		return nil, fmt.Errorf("init data has no user parameter")
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// DisplayName returns the best human label for an account.
func (a *Account) DisplayName() string {
	if a.Label != "" {
		return a.Label
	}
	if user, err := ParseUser(a.InitData); err == nil {
		if user.FirstName != "" {
			return user.FirstName
		}
		if user.Username != "" {
			return user.Username
		}
		return strconv.FormatInt(user.ID, 10)
	}
	return fmt.Sprintf("account-%d", a.Index+1)
}

// Key identifies the account across runs and instances: the Telegram user
// ID when initData carries one, otherwise the label or position.
func (a *Account) Key() string {
	if user, err := ParseUser(a.InitData); err == nil && user.ID != 0 {
		return strconv.FormatInt(user.ID, 10)
	}
	if a.Label != "" {
		return a.Label
	}
	return fmt.Sprintf("account-%d", a.Index+1)
}

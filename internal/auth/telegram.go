package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var ErrInvalidInitData = errors.New("invalid telegram init data")

// TelegramUser is the identity block carried inside Mini App initData.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

// DisplayName joins first and last name the way the client shows it.
func (u TelegramUser) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// VerifyInitData validates a Mini App initData string against the bot
// token using Telegram's HMAC-SHA256 scheme and returns the embedded
// user. The check-string is every field except "hash", sorted by key
// and joined with newlines; the secret key is HMAC("WebAppData", token).
func VerifyInitData(initData, botToken string) (TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return TelegramUser{}, fmt.Errorf("parse init data: %w", err)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return TelegramUser{}, ErrInvalidInitData
	}

	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secretMac := hmac.New(sha256.New, []byte("WebAppData"))
	secretMac.Write([]byte(botToken))
	secret := secretMac.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return TelegramUser{}, ErrInvalidInitData
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		return TelegramUser{}, ErrInvalidInitData
	}
	var user TelegramUser
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return TelegramUser{}, fmt.Errorf("parse user: %w", err)
	}
	if user.ID == 0 {
		return TelegramUser{}, ErrInvalidInitData
	}
	return user, nil
}

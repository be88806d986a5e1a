package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const botToken = "12345:test-bot-token"

func sign(t *testing.T, values url.Values) string {
	t.Helper()
	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)

	secretMac := hmac.New(sha256.New, []byte("WebAppData"))
	secretMac.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secretMac.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func TestVerifyInitDataValid(t *testing.T) {
	values := url.Values{}
	values.Set("user", `{"id":42,"first_name":"Oksana","last_name":"Koval","photo_url":"https://t.me/p.jpg"}`)
	values.Set("auth_date", "1700000000")

	user, err := VerifyInitData(sign(t, values), botToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "Oksana Koval", user.DisplayName())
	assert.Equal(t, "https://t.me/p.jpg", user.PhotoURL)
}

func TestVerifyInitDataWrongToken(t *testing.T) {
	values := url.Values{}
	values.Set("user", `{"id":42,"first_name":"Oksana"}`)

	_, err := VerifyInitData(sign(t, values), "other-token")
	assert.ErrorIs(t, err, ErrInvalidInitData)
}

func TestVerifyInitDataTamperedField(t *testing.T) {
	values := url.Values{}
	values.Set("user", `{"id":42,"first_name":"Oksana"}`)
	values.Set("auth_date", "1700000000")
	signed := sign(t, values)
	tampered := strings.Replace(signed, "1700000000", "1700000001", 1)

	_, err := VerifyInitData(tampered, botToken)
	assert.ErrorIs(t, err, ErrInvalidInitData)
}

func TestVerifyInitDataMissingHash(t *testing.T) {
	_, err := VerifyInitData("user=%7B%22id%22%3A42%7D", botToken)
	assert.ErrorIs(t, err, ErrInvalidInitData)
}

func TestVerifyInitDataMissingUser(t *testing.T) {
	values := url.Values{}
	values.Set("auth_date", "1700000000")

	_, err := VerifyInitData(sign(t, values), botToken)
	assert.ErrorIs(t, err, ErrInvalidInitData)
}

func TestDisplayNameTrimsMissingLastName(t *testing.T) {
	user := TelegramUser{FirstName: "Oksana"}
	assert.Equal(t, "Oksana", user.DisplayName())
}

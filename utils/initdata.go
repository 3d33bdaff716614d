package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInitDataSignature = errors.New("init data signature mismatch")
	ErrInitDataExpired   = errors.New("init data is too old")
)

// TelegramUser is the "user" field of Mini App init data.
type TelegramUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PhotoURL  string `json:"photo_url"`
}

// VerifyInitData validates the signature Telegram attaches to Mini App launch
// data and returns the parsed values. The scheme: secret = HMAC-SHA256 of the
// bot token keyed with "WebAppData"; the hash covers all fields except "hash",
// key-sorted and joined as "k=v" lines with "\n".
func VerifyInitData(raw, botToken string, maxAge time.Duration) (url.Values, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed init data: %w", err)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, ErrInitDataSignature
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

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(gotHash)) {
		return nil, ErrInitDataSignature
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed auth_date: %w", err)
		}
		if time.Since(time.Unix(authDate, 0)) > maxAge {
			return nil, ErrInitDataExpired
		}
	}

	return values, nil
}

// InitDataUser decodes the "user" JSON blob from verified init data.
func InitDataUser(values url.Values) (TelegramUser, error) {
	var user TelegramUser
	raw := values.Get("user")
	if raw == "" {
		return user, errors.New("init data has no user field")
	}
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return user, fmt.Errorf("malformed user field: %w", err)
	}
	if user.ID == 0 {
		return user, errors.New("init data user has no id")
	}
	return user, nil
}

// StartParam returns the deep-link payload of the launch, if any.
func StartParam(values url.Values) string {
	return values.Get("start_param")
}

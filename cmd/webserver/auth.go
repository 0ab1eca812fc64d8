package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// loginMaxAge bounds how old a Telegram Login Widget payload may be.
const loginMaxAge = 24 * time.Hour

var errLoginRejected = errors.New("login rejected")

// telegramLogin is the payload the Telegram Login Widget hands to the page.
type telegramLogin struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
	AuthDate  int64  `json:"auth_date"`
	Hash      string `json:"hash"`
}

// checkString is the data-check-string: every received field except hash,
// as key=value lines sorted by key.
func (l telegramLogin) checkString() string {
	fields := map[string]string{
		"id":        strconv.FormatInt(l.ID, 10),
		"auth_date": strconv.FormatInt(l.AuthDate, 10),
	}
	optional := map[string]string{
		"first_name": l.FirstName,
		"last_name":  l.LastName,
		"username":   l.Username,
		"photo_url":  l.PhotoURL,
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}

	keys := lo.Keys(fields)
	sort.Strings(keys)
	return strings.Join(lo.Map(keys, func(k string, _ int) string { return k + "=" + fields[k] }), "\n")
}

// signTelegramLogin computes the hash Telegram attaches for the given bot.
func signTelegramLogin(botToken string, l telegramLogin) string {
	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(l.checkString()))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyTelegramLogin accepts a payload only if Telegram signed it for this bot recently.
func verifyTelegramLogin(botToken string, l telegramLogin, now time.Time) error {
	if botToken == "" {
		return fmt.Errorf("%w: telegram login is not configured", errLoginRejected)
	}
	if l.ID <= 0 || l.Hash == "" {
		return fmt.Errorf("%w: missing id or hash", errLoginRejected)
	}
	if !hmac.Equal([]byte(signTelegramLogin(botToken, l)), []byte(strings.ToLower(l.Hash))) {
		return fmt.Errorf("%w: bad hash", errLoginRejected)
	}
	age := now.Sub(time.Unix(l.AuthDate, 0))
	if age > loginMaxAge || age < -time.Minute {
		return fmt.Errorf("%w: auth_date out of range", errLoginRejected)
	}
	return nil
}

// newGuestID mints a negative id; Telegram user ids are positive, so guests
// never share a bank with a bot user.
func newGuestID() int64 {
	u := uuid.New()
	return -int64(binary.BigEndian.Uint64(u[:8])>>1) - 1
}

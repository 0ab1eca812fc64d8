package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramLoginCheckString(t *testing.T) {
	l := telegramLogin{ID: 42, FirstName: "Sam", Username: "sam", AuthDate: 1700000000, Hash: "ignored"}
	assert.Equal(t, "auth_date=1700000000\nfirst_name=Sam\nid=42\nusername=sam", l.checkString())
}

func TestVerifyTelegramLogin(t *testing.T) {
	now := time.Unix(1700000000, 0)
	valid := telegramLogin{ID: 42, Username: "sam", AuthDate: now.Add(-time.Hour).Unix()}
	valid.Hash = signTelegramLogin(testBotToken, valid)

	tests := []struct {
		name    string
		token   string
		login   func() telegramLogin
		wantErr bool
	}{
		{"valid", testBotToken, func() telegramLogin { return valid }, false},
		{"upper case hash", testBotToken, func() telegramLogin {
			l := valid
			l.Hash = toUpperHex(l.Hash)
			return l
		}, false},
		{"login disabled", "", func() telegramLogin { return valid }, true},
		{"missing hash", testBotToken, func() telegramLogin {
			l := valid
			l.Hash = ""
			return l
		}, true},
		{"tampered id", testBotToken, func() telegramLogin {
			l := valid
			l.ID = 43
			return l
		}, true},
		{"other bot", "999:other", func() telegramLogin { return valid }, true},
		{"stale", testBotToken, func() telegramLogin {
			l := valid
			l.AuthDate = now.Add(-48 * time.Hour).Unix()
			l.Hash = signTelegramLogin(testBotToken, l)
			return l
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyTelegramLogin(tt.token, tt.login(), now)
			if tt.wantErr {
				assert.ErrorIs(t, err, errLoginRejected)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewGuestIDIsNegative(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 100; i++ {
		id := newGuestID()
		require.Less(t, id, int64(0))
		seen[id] = true
	}
	assert.Len(t, seen, 100)
}

func toUpperHex(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'f' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}

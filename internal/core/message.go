package core

import (
	"bytes"
	"crypto/md5" //nolint:gosec // gravatar addresses avatars by md5
	"encoding/hex"
	"html/template"
	"strings"
	"time"

	"github.com/vovakirdan/pollchat/internal/utils"
)

const (
	gravatarBase = "https://secure.gravatar.com/avatar/"
	timeLayout   = "15:04:05"

	// SystemSender is the author of informational replies.
	SystemSender = "system"
)

// User is the identity a command is executed for.
type User struct {
	Nick  string
	Email string
}

// Message is the domain model for a chat message.
// All fields are set by NewMessage and never change afterwards.
type Message struct {
	ID          string
	From        string
	Body        string
	HTML        string
	Avatar      string
	AvatarSmall string
	Time        string
	CreatedAt   time.Time
}

var messageTemplate = template.Must(template.New("message").Parse(
	`<div class="message" id="m{{.ID}}"><img src="{{.AvatarSmall}}" class="avatar"/>` +
		`<b>{{.From}}: </b>{{.Body}}<span class="time">{{.Time}}</span></div>`,
))

// NewMessage builds a message authored by user with a fresh time-ordered id.
func NewMessage(user User, body string, now time.Time) Message {
	avatar := AvatarURL(user.Email)
	msg := Message{
		ID:          utils.NewID(),
		From:        user.Nick,
		Body:        body,
		Avatar:      avatar + "?size=512",
		AvatarSmall: avatar + "?size=18",
		Time:        now.Format(timeLayout),
		CreatedAt:   now,
	}
	msg.HTML = renderHTML(&msg)
	return msg
}

// AvatarURL returns the gravatar address for email without a size parameter.
func AvatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email)))) //nolint:gosec
	return gravatarBase + hex.EncodeToString(sum[:])
}

func renderHTML(msg *Message) string {
	var buf bytes.Buffer
	if err := messageTemplate.Execute(&buf, msg); err != nil {
		return template.HTMLEscapeString(msg.Body)
	}
	return buf.String()
}

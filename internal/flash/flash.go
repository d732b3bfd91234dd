// Package flash carries one-shot notices across a redirect in a cookie.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const cookieName = "flash"

type Category string

const (
	Info    Category = "info"
	Success Category = "success"
	Danger  Category = "danger"
)

type Message struct {
	Category Category `json:"c"`
	Text     string   `json:"t"`
}

const pendingKey = "flash.pending"

// Add queues a message for the next page the visitor sees.
func Add(c *gin.Context, category Category, text string) {
	pending := append(pending(c), Message{Category: category, Text: text})
	c.Set(pendingKey, pending)

	raw, err := json.Marshal(pending)
	if err != nil {
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns queued messages and clears them.
func Pop(c *gin.Context) []Message {
	c.Set(pendingKey, []Message{})

	messages := incoming(c)
	if messages == nil {
		if _, err := c.Request.Cookie(cookieName); err != nil {
			return nil
		}
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return messages
}

// pending starts from the unread messages the request arrived with until
// this request pops them.
func pending(c *gin.Context) []Message {
	if v, ok := c.Get(pendingKey); ok {
		if m, ok := v.([]Message); ok {
			return m
		}
	}
	return incoming(c)
}

func incoming(c *gin.Context) []Message {
	cookie, err := c.Request.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var messages []Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil
	}
	return messages
}

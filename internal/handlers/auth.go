package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Veein-web/AI-Background-Remover/internal/flash"
	"github.com/Veein-web/AI-Background-Remover/internal/middleware"
	"github.com/Veein-web/AI-Background-Remover/internal/models"
	"github.com/Veein-web/AI-Background-Remover/internal/service"
)

const afterLogin = "/remove"

func (h HandlerSet) LoginPage(c *gin.Context) {
	if _, ok := middleware.CurrentPrincipal(c); ok {
		redirect(c, afterLogin)
		return
	}
	h.render(c, "login.html", gin.H{"Title": "Log in"})
}

func (h HandlerSet) Login(c *gin.Context) {
	if _, ok := middleware.CurrentPrincipal(c); ok {
		redirect(c, afterLogin)
		return
	}

	user, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
	})
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			h.log.Error().Err(err).Msg("login failed")
		}
		flash.Add(c, flash.Danger, "Please check your login details and try again.")
		redirect(c, "/login")
		return
	}

	if !h.startSession(c, user, models.AuthProviderLocal) {
		redirect(c, "/login")
		return
	}
	redirect(c, afterLogin)
}

func (h HandlerSet) SignupPage(c *gin.Context) {
	if _, ok := middleware.CurrentPrincipal(c); ok {
		redirect(c, afterLogin)
		return
	}
	h.render(c, "signup.html", gin.H{"Title": "Sign up", "MinPassword": service.MinPasswordLength})
}

func (h HandlerSet) Signup(c *gin.Context) {
	if _, ok := middleware.CurrentPrincipal(c); ok {
		redirect(c, afterLogin)
		return
	}

	_, err := h.auth.Signup(c.Request.Context(), service.SignupInput{
		Email:       c.PostForm("email"),
		Password:    c.PostForm("password"),
		DisplayName: c.PostForm("name"),
	})
	switch {
	case err == nil:
		flash.Add(c, flash.Success, "Account created successfully! You get 1 free HD credit. Please login.")
		redirect(c, "/login")
	case errors.Is(err, service.ErrEmailTaken):
		flash.Add(c, flash.Danger, "Email address already exists.")
		redirect(c, "/signup")
	case errors.Is(err, service.ErrInvalidInput):
		flash.Add(c, flash.Danger, strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": "))
		redirect(c, "/signup")
	default:
		h.log.Error().Err(err).Msg("signup failed")
		flash.Add(c, flash.Danger, "Could not create the account, please try again.")
		redirect(c, "/signup")
	}
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), principal(c).SessionID); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
	}
	middleware.ClearSessionCookie(c)
	redirect(c, "/")
}

func (h HandlerSet) GoogleLogin(c *gin.Context) {
	if h.google == nil || h.states == nil {
		flash.Add(c, flash.Danger, "Google login is not available.")
		redirect(c, "/login")
		return
	}

	state, err := h.states.Issue(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("issue oauth state failed")
		flash.Add(c, flash.Danger, "Failed to log in with Google.")
		redirect(c, "/login")
		return
	}
	redirect(c, h.google.AuthCodeURL(state))
}

func (h HandlerSet) GoogleCallback(c *gin.Context) {
	if h.google == nil || h.states == nil {
		redirect(c, "/login")
		return
	}
	ctx := c.Request.Context()

	if err := h.states.Consume(ctx, c.Query("state")); err != nil || c.Query("error") != "" || c.Query("code") == "" {
		if err != nil {
			h.log.Warn().Err(err).Msg("oauth callback rejected")
		}
		flash.Add(c, flash.Danger, "Failed to log in with Google.")
		redirect(c, "/login")
		return
	}

	identity, err := h.google.Exchange(ctx, c.Query("code"))
	if err != nil {
		h.log.Warn().Err(err).Msg("oauth exchange failed")
		flash.Add(c, flash.Danger, "Failed to fetch user info from Google.")
		redirect(c, "/login")
		return
	}

	user, created, err := h.auth.FederatedLogin(ctx, identity)
	if err != nil {
		h.log.Warn().Err(err).Msg("federated login failed")
		flash.Add(c, flash.Danger, "Failed to log in with Google.")
		redirect(c, "/login")
		return
	}
	if created {
		flash.Add(c, flash.Success, "Account created successfully via Google!")
	}

	if !h.startSession(c, user, models.AuthProviderGoogle) {
		redirect(c, "/login")
		return
	}
	redirect(c, afterLogin)
}

func (h HandlerSet) startSession(c *gin.Context, user models.User, provider models.AuthProvider) bool {
	token, err := h.auth.StartSession(c.Request.Context(), user, service.SessionMeta{
		Provider:  provider,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("start session failed")
		flash.Add(c, flash.Danger, "Could not start a session, please try again.")
		return false
	}
	middleware.SetSessionCookie(c, token, h.cfg.Security.CookieSecure)
	return true
}

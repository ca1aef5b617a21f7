package handlers

import (
	"errors"
	"net/http"

	"studybud/internal/middleware"
	"studybud/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	accounts *services.AccountService
}

func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	if currentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	Render(c, http.StatusOK, "auth/register.html", gin.H{"Title": "Sign up"})
}

func (h *AuthHandler) Register(c *gin.Context) {
	in := services.RegisterInput{
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
	}
	if confirm := c.PostForm("password_confirm"); confirm != "" && confirm != in.Password {
		Render(c, http.StatusBadRequest, "auth/register.html", gin.H{"Error": "Passwords do not match", "Form": in})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), in)
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		Render(c, http.StatusConflict, "auth/register.html", gin.H{"Error": "That email is already registered", "Form": in})
		return
	case errors.Is(err, services.ErrInvalidInput):
		Render(c, http.StatusBadRequest, "auth/register.html", gin.H{"Error": invalidInputMessage(err), "Form": in})
		return
	case err != nil:
		c.Error(err)
		RenderError(c, http.StatusInternalServerError, "Registration failed")
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID)
	session.AddFlash("Welcome to StudyBud, " + user.Username + "!")
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	if currentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	Render(c, http.StatusOK, "auth/login.html", gin.H{"Title": "Log in"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	user, err := h.accounts.Authenticate(c.Request.Context(), email, password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{"Error": "Email or password is incorrect", "Email": email})
		return
	}
	if err != nil {
		c.Error(err)
		RenderError(c, http.StatusInternalServerError, "Login failed")
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/login")
}

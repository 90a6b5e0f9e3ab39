package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sanamente/catalogd/internal/auth"
	"github.com/sanamente/catalogd/internal/webserver"
	"github.com/sanamente/catalogd/internal/workflow"
)

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerPayload struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=200"`
	Terms       bool   `json:"terms"`
}

func registerAuthRoutes() {
	webserver.PubPOST("/auth/login", login)
	webserver.PubPOST("/auth/register", register)
	webserver.ApiPOST("/auth/logout", logout)
	webserver.ApiGET("/auth/session", currentSession)
	webserver.ApiPUT("/auth/profile", updateProfile)
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse credentials", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	sess, err := deps.Auth.SignIn(c.Request().Context(), payload.Email, payload.Password)
	if err == auth.ErrBadCredentials {
		return fail(c, http.StatusUnauthorized, "BAD_CREDENTIALS", "Invalid email or password", nil)
	} else if err != nil {
		return failTaxonomy(c, err)
	}
	return ok(c, sess)
}

func register(c echo.Context) error {
	var payload registerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse registration", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if !payload.Terms {
		return fail(c, http.StatusBadRequest, "TERMS_REQUIRED", "Terms and conditions must be accepted", nil)
	}

	sess, err := deps.Auth.SignUp(c.Request().Context(), payload.Email, payload.Password, payload.DisplayName)
	if err == auth.ErrEmailTaken {
		return fail(c, http.StatusConflict, "EMAIL_TAKEN", "Email already registered", nil)
	} else if err != nil {
		return failTaxonomy(c, err)
	}
	return ok(c, sess)
}

func logout(c echo.Context) error {
	deps.Auth.SignOut()
	return ok(c, nil)
}

func currentSession(c echo.Context) error {
	return ok(c, webserver.GetSession(c))
}

// updateProfile validates the requested changes, then routes the save
// through the same confirm flow as a destructive delete. The write only
// happens on confirm.
func updateProfile(c echo.Context) error {
	sess := webserver.GetSession(c)
	if sess == nil {
		return fail(c, http.StatusUnauthorized, "AUTH_REQUIRED", "No active session", nil)
	}
	var payload auth.ProfileUpdate
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse profile", nil)
	}
	// bad input is rejected before the user is ever asked to confirm
	if err := deps.Auth.ValidateProfile(payload); err != nil {
		return failTaxonomy(c, err)
	}

	entry, err := flows.begin(sess.UserID, "profile.update", sess.Email,
		"Perfil actualizado correctamente",
		func(ctx context.Context) error {
			return deps.Auth.UpdateProfile(ctx, payload)
		})
	if err == workflow.ErrBusy {
		return fail(c, http.StatusConflict, "WORKFLOW_BUSY", "Another action is awaiting confirmation", nil)
	} else if err != nil {
		return failTaxonomy(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"success": true, "data": flowJSON(entry)})
}

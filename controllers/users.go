package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"bookstore-backend/auth"
	"bookstore-backend/imagehost"
	"bookstore-backend/mailer"
	"bookstore-backend/middlewares"
	"bookstore-backend/models"
	"bookstore-backend/store"

	"github.com/gin-gonic/gin"
)

const resetTokenTTL = 15 * time.Minute

type verifyRequest struct {
	OTP             int    `json:"otp" binding:"required"`
	ActivationToken string `json:"activationToken" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type updatePasswordRequest struct {
	OldPassword     string `json:"oldPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type updateRoleRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (h *Handler) uploadFile(ctx *gin.Context, folder string, fh *multipart.FileHeader) (models.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return models.Image{}, err
	}
	defer f.Close()
	return h.Images.Upload(ctx.Request.Context(), folder, fh.Filename, fh.Header.Get("Content-Type"), f)
}

// sendToken issues a session, sets the cookie and returns the user.
func (h *Handler) sendToken(ctx *gin.Context, status int, user *models.User) {
	token, err := h.Tokens.IssueSession(user)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	maxAge := h.Config.CookieExpireDays * 24 * 60 * 60
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.TokenCookie, token, maxAge, "/", "", gin.Mode() == gin.ReleaseMode, true)
	sendJSONResponse(ctx, status, gin.H{"success": true, "user": user, "token": token})
}

// Register stores nothing yet: the pending account travels inside the
// activation token until the OTP is confirmed.
func (h *Handler) Register(ctx *gin.Context) {
	name := strings.TrimSpace(ctx.PostForm("name"))
	email := normalizeEmail(ctx.PostForm("email"))
	password := ctx.PostForm("password")
	avatarFile, fileErr := ctx.FormFile("avatar")
	if name == "" || email == "" || password == "" || fileErr != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "All fields are required")
		return
	}
	if !validEmail(email) {
		sendErrorResponse(ctx, http.StatusBadRequest, "Please enter a valid email")
		return
	}

	rctx := ctx.Request.Context()
	if _, err := h.Store.GetUserByEmail(rctx, email); err == nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "User Already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.fail(ctx, err)
		return
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	avatar, err := h.uploadFile(ctx, imagehost.FolderAvatars, avatarFile)
	if err != nil {
		h.Logger.Error("avatar upload failed", "error", err)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Avatar upload failed")
		return
	}

	otp, err := auth.GenerateOTP()
	if err != nil {
		h.fail(ctx, err)
		return
	}
	pending := auth.PendingUser{Name: name, Email: email, Password: hashed, Avatar: avatar}
	activationToken, err := h.Tokens.IssueActivation(pending, otp)
	if err != nil {
		h.fail(ctx, err)
		return
	}

	body, err := mailer.RenderOTP(mailer.OTPData{Name: name, OTP: otp, Minutes: int(h.Config.ActivationTokenTTL.Minutes())})
	if err == nil {
		err = h.Mail.Send(rctx, email, "Bookstore account verification", body)
	}
	if err != nil {
		_ = h.Images.Destroy(rctx, avatar.PublicID)
		h.fail(ctx, err)
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": "OTP sent to your email", "activationToken": activationToken})
}

func (h *Handler) Verify(ctx *gin.Context) {
	var req verifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}
	claims, err := h.Tokens.ParseActivation(req.ActivationToken)
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "OTP EXPIRED")
		return
	}
	if claims.OTP != req.OTP {
		sendErrorResponse(ctx, http.StatusBadRequest, "WRONG OTP")
		return
	}

	user := &models.User{
		Name:     claims.User.Name,
		Email:    claims.User.Email,
		Password: claims.User.Password,
		Avatar:   claims.User.Avatar,
		Role:     models.RoleUser,
	}
	if err := h.Store.CreateUser(ctx.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			sendErrorResponse(ctx, http.StatusBadRequest, "User Already exists")
			return
		}
		h.fail(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": "User Registered"})
}

func (h *Handler) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "Please enter email and password")
		return
	}
	user, err := h.Store.GetUserByEmail(ctx.Request.Context(), normalizeEmail(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		sendErrorResponse(ctx, http.StatusBadRequest, "No User with this email")
		return
	}
	if err != nil {
		h.fail(ctx, err)
		return
	}
	if !auth.ComparePassword(user.Password, req.Password) {
		sendErrorResponse(ctx, http.StatusBadRequest, "wrong Password")
		return
	}
	h.sendToken(ctx, http.StatusOK, user)
}

func (h *Handler) Logout(ctx *gin.Context) {
	ctx.SetCookie(middlewares.TokenCookie, "", -1, "/", "", gin.Mode() == gin.ReleaseMode, true)
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "message": "Log out success"})
}

func (h *Handler) ForgotPassword(ctx *gin.Context) {
	var req forgotPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}
	rctx := ctx.Request.Context()
	user, err := h.Store.GetUserByEmail(rctx, normalizeEmail(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		sendErrorResponse(ctx, http.StatusNotFound, "No User with this email")
		return
	}
	if err != nil {
		h.fail(ctx, err)
		return
	}

	raw, hash, err := auth.NewResetToken()
	if err != nil {
		h.fail(ctx, err)
		return
	}
	expires := h.Now().Add(resetTokenTTL)
	if err := h.Store.SetResetToken(rctx, user.ID, hash, &expires); err != nil {
		h.fail(ctx, err)
		return
	}

	link := strings.TrimRight(h.Config.FrontendURL, "/") + "/password/reset/" + raw
	body, err := mailer.RenderReset(mailer.ResetData{Name: user.Name, URL: link, Minutes: int(resetTokenTTL.Minutes())})
	if err == nil {
		err = h.Mail.Send(rctx, user.Email, "Bookstore password recovery", body)
	}
	if err != nil {
		h.Logger.Error("reset mail failed", "user", user.ID.Hex(), "error", err)
		if clearErr := h.Store.SetResetToken(rctx, user.ID, "", nil); clearErr != nil {
			h.Logger.Error("clearing reset token failed", "user", user.ID.Hex(), "error", clearErr)
		}
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to send email. Please try again later.")
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "message": "Email sent to " + user.Email + " successfully"})
}

func (h *Handler) ResetPassword(ctx *gin.Context) {
	rctx := ctx.Request.Context()
	user, err := h.Store.GetUserByResetToken(rctx, auth.HashResetToken(ctx.Param("token")), h.Now())
	if errors.Is(err, store.ErrNotFound) {
		sendErrorResponse(ctx, http.StatusNotFound, "Invalid or expired token")
		return
	}
	if err != nil {
		h.fail(ctx, err)
		return
	}

	var req resetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password != req.ConfirmPassword {
		sendErrorResponse(ctx, http.StatusBadRequest, "Password does not match")
		return
	}

	if user.Password, err = auth.HashPassword(req.Password); err != nil {
		h.fail(ctx, err)
		return
	}
	user.ResetPasswordToken = ""
	user.ResetPasswordTime = nil
	if err := h.Store.UpdateUser(rctx, user); err != nil {
		h.fail(ctx, err)
		return
	}
	h.sendToken(ctx, http.StatusOK, user)
}

func (h *Handler) Me(ctx *gin.Context) {
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "user": middlewares.CurrentUser(ctx)})
}

func (h *Handler) UpdatePassword(ctx *gin.Context) {
	var req updatePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}
	user := middlewares.CurrentUser(ctx)
	if !auth.ComparePassword(user.Password, req.OldPassword) {
		sendErrorResponse(ctx, http.StatusBadRequest, "Old Password is incorrect")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		sendErrorResponse(ctx, http.StatusBadRequest, "Password not matched with each other")
		return
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	user.Password = hashed
	if err := h.Store.UpdateUser(ctx.Request.Context(), user); err != nil {
		h.fail(ctx, err)
		return
	}
	h.sendToken(ctx, http.StatusOK, user)
}

// UpdateProfile takes multipart name and email plus an optional new avatar.
// The old avatar is destroyed only once the new one is saved.
func (h *Handler) UpdateProfile(ctx *gin.Context) {
	user := middlewares.CurrentUser(ctx)
	if name := strings.TrimSpace(ctx.PostForm("name")); name != "" {
		user.Name = name
	}
	if email := normalizeEmail(ctx.PostForm("email")); email != "" {
		if !validEmail(email) {
			sendErrorResponse(ctx, http.StatusBadRequest, "Please enter a valid email")
			return
		}
		user.Email = email
	}

	rctx := ctx.Request.Context()
	previous := user.Avatar
	replaced := false
	if fh, err := ctx.FormFile("avatar"); err == nil {
		avatar, err := h.uploadFile(ctx, imagehost.FolderAvatars, fh)
		if err != nil {
			h.fail(ctx, err)
			return
		}
		user.Avatar = avatar
		replaced = true
	}

	if err := h.Store.UpdateUser(rctx, user); err != nil {
		if replaced {
			_ = h.Images.Destroy(rctx, user.Avatar.PublicID)
		}
		h.fail(ctx, err)
		return
	}
	if replaced {
		if err := h.Images.Destroy(rctx, previous.PublicID); err != nil {
			h.Logger.Warn("destroying replaced avatar failed", "user", user.ID.Hex(), "error", err)
		}
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "message": "Profile updated successfully", "user": user})
}

func (h *Handler) ListUsers(ctx *gin.Context) {
	users, err := h.Store.ListUsers(ctx.Request.Context())
	if err != nil {
		h.fail(ctx, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "users": users})
}

func (h *Handler) GetUser(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	user, err := h.Store.GetUser(ctx.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		sendErrorResponse(ctx, http.StatusNotFound, "User not found with this ID")
		return
	}
	if err != nil {
		h.fail(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "user": user})
}

func (h *Handler) UpdateUserRole(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}
	if !models.ValidRole(req.Role) {
		sendErrorResponse(ctx, http.StatusBadRequest, "Invalid role: "+req.Role)
		return
	}

	rctx := ctx.Request.Context()
	user, err := h.Store.GetUser(rctx, id)
	if errors.Is(err, store.ErrNotFound) {
		sendErrorResponse(ctx, http.StatusNotFound, "User not found with this ID")
		return
	}
	if err != nil {
		h.fail(ctx, err)
		return
	}
	user.Name = strings.TrimSpace(req.Name)
	user.Email = normalizeEmail(req.Email)
	user.Role = req.Role
	if err := h.Store.UpdateUser(rctx, user); err != nil {
		h.fail(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "user": user})
}

func (h *Handler) DeleteUser(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	rctx := ctx.Request.Context()
	user, err := h.Store.GetUser(rctx, id)
	if errors.Is(err, store.ErrNotFound) {
		sendErrorResponse(ctx, http.StatusNotFound, "User is not found with this id")
		return
	}
	if err != nil {
		h.fail(ctx, err)
		return
	}

	if err := h.Images.Destroy(rctx, user.Avatar.PublicID); err != nil {
		h.fail(ctx, err)
		return
	}
	if err := h.Store.DeleteUser(rctx, id); err != nil {
		h.fail(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
}

// Package controllers holds the HTTP handlers of the bookstore API.
package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"bookstore-backend/auth"
	"bookstore-backend/cache"
	"bookstore-backend/config"
	"bookstore-backend/feed"
	"bookstore-backend/imagehost"
	"bookstore-backend/mailer"
	"bookstore-backend/payment"
	"bookstore-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderEvents receives order lifecycle events for the admin feed.
type OrderEvents interface {
	Publish(e feed.Event)
}

type Handler struct {
	Store    store.Store
	Tokens   *auth.Tokens
	Payments payment.Processor // nil when no processor is configured
	Images   imagehost.Host
	Mail     mailer.Sender
	Cache    cache.Products
	Events   OrderEvents
	Feed     *feed.Hub
	Logger   *slog.Logger
	Config   *config.Config
	Now      func() time.Time
}

// New fills in defaults for the optional collaborators.
func New(h Handler) *Handler {
	if h.Cache == nil {
		h.Cache = cache.Noop{}
	}
	if h.Events == nil {
		if h.Feed != nil {
			h.Events = h.Feed
		} else {
			h.Events = discardEvents{}
		}
	}
	if h.Logger == nil {
		h.Logger = slog.Default()
	}
	if h.Now == nil {
		h.Now = time.Now
	}
	return &h
}

type discardEvents struct{}

func (discardEvents) Publish(feed.Event) {}

func sendJSONResponse(ctx *gin.Context, status int, data gin.H) {
	ctx.JSON(status, data)
}

func sendErrorResponse(ctx *gin.Context, status int, message string) {
	sendJSONResponse(ctx, status, gin.H{"success": false, "message": message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientStock), errors.Is(err, store.ErrDuplicateEmail):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrStatusConflict), errors.Is(err, store.ErrPaymentReused):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status it maps to. Internal errors are logged.
func (h *Handler) fail(ctx *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed", "path", ctx.FullPath(), "error", err)
	}
	_ = ctx.Error(err)
	sendErrorResponse(ctx, status, err.Error())
}

func paramID(ctx *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := store.ParseID(ctx.Param(name))
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "Invalid "+name+": "+ctx.Param(name))
		return primitive.NilObjectID, false
	}
	return id, true
}

func queryID(ctx *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := store.ParseID(ctx.Query(name))
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "Invalid "+name+": "+ctx.Query(name))
		return primitive.NilObjectID, false
	}
	return id, true
}

// validEmail applies the same rule as the `email` binding tag to values read
// from multipart forms.
func validEmail(email string) bool {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	return ok && v.Var(email, "required,email") == nil
}

var registerOnce sync.Once

// RegisterValidators adds the custom binding rules. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
				return primitive.IsValidObjectID(fl.Field().String())
			})
		}
	})
}

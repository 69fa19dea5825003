// Package payment talks to the payment processor. Intents are created here and
// confirmed by the browser directly against the processor.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const StatusSucceeded = "succeeded"

var ErrUpstream = errors.New("payment processor error")

type Intent struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
}

type Processor interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

type stripeError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Stripe implements Processor over the Stripe REST API.
type Stripe struct {
	client *resty.Client
}

func NewStripe(baseURL, secretKey string) *Stripe {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(secretKey).
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second)
	return &Stripe{client: client}
}

func (s *Stripe) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	form := map[string]string{
		"amount":   strconv.FormatInt(amount, 10),
		"currency": currency,
	}
	for k, v := range metadata {
		form["metadata["+k+"]"] = v
	}

	var intent Intent
	var apiErr stripeError
	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&intent).
		SetError(&apiErr).
		Post("/v1/payment_intents")
	if err := upstreamError(resp, err, &apiErr); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (s *Stripe) GetIntent(ctx context.Context, id string) (*Intent, error) {
	var intent Intent
	var apiErr stripeError
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&intent).
		SetError(&apiErr).
		Get("/v1/payment_intents/{id}")
	if err := upstreamError(resp, err, &apiErr); err != nil {
		return nil, err
	}
	return &intent, nil
}

func upstreamError(resp *resty.Response, err error, apiErr *stripeError) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode() == http.StatusOK {
		return nil
	}
	msg := apiErr.Error.Message
	if msg == "" {
		msg = resp.Status()
	}
	return fmt.Errorf("%w: %s", ErrUpstream, msg)
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hupe1980/healthbot/logging"
)

// TwilioBaseURL is the public Twilio REST endpoint.
const TwilioBaseURL = "https://api.twilio.com"

// ErrNoRecipient is returned when neither the alert nor the client name a
// recipient.
var ErrNoRecipient = errors.New("no alert recipient configured")

// TwilioOptions configures the WhatsApp client.
type TwilioOptions struct {
	BaseURL string
	// From is the sending WhatsApp number.
	From string
	// DefaultTo receives alerts that do not name a recipient.
	DefaultTo  string
	Timeout    time.Duration
	MaxRetries int
	Logger     logging.Logger
}

// Twilio sends alerts as WhatsApp messages through the Twilio Messages API.
type Twilio struct {
	accountSID string
	opts       TwilioOptions
	http       *resty.Client
}

var _ Notifier = (*Twilio)(nil)

// TwilioMessage is the subset of the Messages API response we use.
type TwilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewTwilio creates a client authenticating with the account SID and token.
func NewTwilio(accountSID, authToken string, optFns ...func(o *TwilioOptions)) *Twilio {
	opts := TwilioOptions{
		BaseURL:    TwilioBaseURL,
		Timeout:    10 * time.Second,
		MaxRetries: 1,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetBasicAuth(accountSID, authToken).
		SetRetryCount(opts.MaxRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(retryableSend).
		SetHeader("Accept", "application/json")

	return &Twilio{accountSID: accountSID, opts: opts, http: client}
}

// retryableSend reports whether a message POST may be repeated without
// risking a duplicate alert: only throttled requests and requests that
// never reached the gateway qualify.
func retryableSend(r *resty.Response, err error) bool {
	if err != nil {
		var opErr *net.OpError
		return errors.As(err, &opErr) && opErr.Op == "dial"
	}

	return r != nil && r.StatusCode() == http.StatusTooManyRequests
}

// Notify implements Notifier.
func (t *Twilio) Notify(ctx context.Context, alert Alert) error {
	_, err := t.Send(ctx, alert)
	return err
}

// Send posts the alert and returns the created message.
func (t *Twilio) Send(ctx context.Context, alert Alert) (*TwilioMessage, error) {
	to := alert.To
	if to == "" {
		to = t.opts.DefaultTo
	}

	if to == "" {
		return nil, ErrNoRecipient
	}

	var (
		msg    TwilioMessage
		errOut twilioError
	)

	resp, err := t.http.R().
		SetContext(ctx).
		SetPathParam("sid", t.accountSID).
		SetFormData(map[string]string{
			"From": whatsapp(t.opts.From),
			"To":   whatsapp(to),
			"Body": alert.Body,
		}).
		SetResult(&msg).
		SetError(&errOut).
		Post("/2010-04-01/Accounts/{sid}/Messages.json")
	if err != nil {
		return nil, fmt.Errorf("twilio request: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("twilio status %d: %s (code %d)", resp.StatusCode(), errOut.Message, errOut.Code)
	}

	t.opts.Logger.Info("alert sent", "user_id", alert.UserID, "sid", msg.SID, "status", msg.Status)

	return &msg, nil
}

func whatsapp(number string) string {
	if number == "" || strings.HasPrefix(number, "whatsapp:") {
		return number
	}

	return "whatsapp:" + number
}

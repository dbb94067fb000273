package answering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"asksource-be/pkg/apperror"
	"asksource-be/pkg/chat/dispatch"
)

// SignalSuccess is the only signal the answering service uses for a usable answer.
const SignalSuccess = "rag_answer_success"

// Answerer is satisfied by Client and by the backend proxy client used from the terminal.
type Answerer interface {
	Answer(ctx context.Context, req dispatch.Request) (string, error)
}

type Client struct {
	BaseURL string
	Client  *http.Client
}

var _ Answerer = &Client{}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Response is the answering service payload. Only Signal and Answer are interpreted.
type Response struct {
	Signal  string  `json:"signal"`
	Answer  *string `json:"answer"`
	Message string  `json:"message,omitempty"`
	Detail  any     `json:"detail,omitempty"`
}

// Reason picks the most specific failure text the service gave.
func (r *Response) Reason() string {
	if r.Signal != "" {
		return r.Signal
	}
	if r.Message != "" {
		return r.Message
	}
	if s, ok := r.Detail.(string); ok && s != "" {
		return s
	}
	return apperror.ErrBackendRejected.Message
}

// Answer posts req to the answering service. Transport failures are NetworkFailure;
// anything else that is not a success signal with an answer is BackendRejected.
func (c *Client) Answer(ctx context.Context, req dispatch.Request) (string, error) {
	payloadBytes, err := json.Marshal(req.Body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.BaseURL + "/" + strings.TrimLeft(req.Endpoint, "/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return "", apperror.Wrap(apperror.KindNetworkFailure, err, "answering service unreachable")
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperror.Wrap(apperror.KindNetworkFailure, err, "read answering response")
	}

	var parsed Response
	decodeErr := json.Unmarshal(bodyBytes, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := parsed.Reason()
		if decodeErr != nil {
			reason = fmt.Sprintf("answering service error: status %d", resp.StatusCode)
		}
		return "", apperror.New(apperror.KindBackendRejected, reason).WithStatus(resp.StatusCode)
	}
	if decodeErr != nil {
		return "", apperror.Wrap(apperror.KindBackendRejected, decodeErr, "unmarshal answering response").WithStatus(resp.StatusCode)
	}
	if parsed.Signal != SignalSuccess {
		return "", apperror.New(apperror.KindBackendRejected, parsed.Reason()).WithStatus(resp.StatusCode)
	}
	if parsed.Answer == nil {
		return "", apperror.New(apperror.KindBackendRejected, "answering service returned no answer").WithStatus(resp.StatusCode)
	}

	return *parsed.Answer, nil
}

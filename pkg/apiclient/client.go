package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"asksource-be/internal/dto"
	"asksource-be/internal/entity"
	"asksource-be/pkg/answering"
	"asksource-be/pkg/apperror"
	"asksource-be/pkg/chat/bootstrap"
	"asksource-be/pkg/chat/dispatch"
	"asksource-be/pkg/chat/persistence"
	"asksource-be/pkg/identity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Client talks to the asksource REST backend on behalf of the identity carried by
// each call's context.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

var (
	_ bootstrap.Source        = &Client{}
	_ bootstrap.ProjectSource = &Client{}
	_ persistence.Adapter     = &Client{}
)

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// kinds selects how failures of one endpoint family are reported: transport for
// unreachable backends, rejected for statuses without a dedicated mapping.
type kinds struct {
	transport apperror.Kind
	rejected  apperror.Kind
}

var (
	storageKinds = kinds{transport: apperror.KindPersistenceFailure, rejected: apperror.KindPersistenceFailure}
	answerKinds  = kinds{transport: apperror.KindNetworkFailure, rejected: apperror.KindBackendRejected}
)

// do sends one JSON request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}, k kinds) error {
	id := identity.FromContext(ctx)
	if id == nil || id.Token == "" {
		return apperror.ErrUnauthenticated
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+id.Token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return apperror.Wrap(k.transport, errors.WithStack(err), "backend unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.Wrap(k.transport, errors.WithStack(err), "read backend response")
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return statusError(resp.StatusCode, msg, k)
	}
	if decodeErr != nil {
		return apperror.Wrap(k.rejected, errors.WithStack(decodeErr), "unmarshal backend response")
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "backend response lacks success marker"
		}
		return apperror.New(k.rejected, msg).WithStatus(resp.StatusCode)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperror.Wrap(k.rejected, errors.WithStack(err), "unmarshal backend data")
	}
	return nil
}

// statusError maps a backend status back onto the error taxonomy. Answer calls keep
// the backend's status so an echoed upstream rejection stays recognizable.
func statusError(status int, msg string, k kinds) error {
	switch status {
	case http.StatusUnauthorized:
		return apperror.New(apperror.KindUnauthenticated, msg)
	case http.StatusConflict:
		return apperror.New(apperror.KindConversationBusy, msg)
	}

	if k.rejected == apperror.KindBackendRejected {
		if status == http.StatusBadGateway {
			return apperror.New(apperror.KindNetworkFailure, msg).WithStatus(status)
		}
		return apperror.New(apperror.KindBackendRejected, msg).WithStatus(status)
	}

	switch status {
	case http.StatusNotFound:
		return apperror.New(apperror.KindNotFound, msg)
	case http.StatusBadRequest:
		return apperror.New(apperror.KindValidationError, msg)
	}
	return apperror.New(k.rejected, msg).WithStatus(status)
}

func (c *Client) ListConversations(ctx context.Context) ([]entity.Conversation, error) {
	var res []dto.ConversationResponse
	if err := c.do(ctx, http.MethodGet, "/api/chat/v1", nil, &res, storageKinds); err != nil {
		return nil, err
	}

	out := make([]entity.Conversation, 0, len(res))
	for i := range res {
		out = append(out, toConversation(&res[i]))
	}
	return out, nil
}

func (c *Client) CreateConversation(ctx context.Context, title string) (*entity.Conversation, error) {
	var res dto.ConversationResponse
	req := dto.CreateConversationRequest{Title: title}
	if err := c.do(ctx, http.MethodPost, "/api/chat/v1", req, &res, storageKinds); err != nil {
		return nil, err
	}
	conv := toConversation(&res)
	return &conv, nil
}

func (c *Client) AppendMessage(ctx context.Context, conversationID uuid.UUID, turn entity.Turn) error {
	req := dto.AppendMessageRequest{
		Role:     string(turn.Role),
		Content:  turn.Content,
		Metadata: turn.Metadata,
	}
	if !turn.CreatedAt.IsZero() {
		createdAt := turn.CreatedAt
		req.CreatedAt = &createdAt
	}

	path := "/api/chat/v1/" + conversationID.String() + "/messages"
	return c.do(ctx, http.MethodPost, path, req, nil, storageKinds)
}

func (c *Client) ListProjects(ctx context.Context) ([]string, error) {
	var res []dto.ProjectResponse
	if err := c.do(ctx, http.MethodGet, "/api/project/v1", nil, &res, storageKinds); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(res))
	for _, p := range res {
		out = append(out, p.Id)
	}
	return out, nil
}

// Proxy answers through the backend's /api/asksource endpoint instead of calling the
// answering service directly.
type Proxy struct {
	client *Client
}

var _ answering.Answerer = &Proxy{}

func (c *Client) Proxy() *Proxy {
	return &Proxy{client: c}
}

func (p *Proxy) Answer(ctx context.Context, req dispatch.Request) (string, error) {
	projectID, err := projectFromEndpoint(req.Endpoint)
	if err != nil {
		return "", err
	}

	limit := req.Body.Limit
	in := dto.AskSourceRequest{
		Prompt:      req.Body.Text,
		ProjectId:   projectID,
		SearchMode:  string(req.Strategy),
		Limit:       &limit,
		DenseLimit:  req.Body.DenseLimit,
		SparseLimit: req.Body.SparseLimit,
	}
	if req.ConversationID != uuid.Nil {
		in.ConversationId = req.ConversationID.String()
	}

	var res dto.AskSourceResponse
	if err := p.client.do(ctx, http.MethodPost, "/api/asksource", in, &res, answerKinds); err != nil {
		return "", err
	}
	if res.Role != string(entity.RoleAssistant) || strings.TrimSpace(res.Content) == "" {
		return "", apperror.New(apperror.KindBackendRejected, "backend returned no assistant answer")
	}
	return res.Content, nil
}

// projectFromEndpoint recovers the project id from "<endpoint>/<escaped project>".
func projectFromEndpoint(endpoint string) (string, error) {
	i := strings.LastIndex(endpoint, "/")
	if i < 0 {
		return "", apperror.ErrMissingProject
	}
	projectID, err := url.PathUnescape(endpoint[i+1:])
	if err != nil || projectID == "" {
		return "", apperror.ErrMissingProject
	}
	return projectID, nil
}

func toConversation(res *dto.ConversationResponse) entity.Conversation {
	turns := make([]entity.Turn, 0, len(res.Turns))
	for _, t := range res.Turns {
		turns = append(turns, entity.Turn{
			Id:             t.Id,
			ConversationId: res.Id,
			Role:           entity.Role(t.Role),
			Content:        t.Content,
			CreatedAt:      t.CreatedAt,
			Metadata:       t.Metadata,
		})
	}
	return entity.Conversation{
		Id:        res.Id,
		Title:     res.Title,
		Turns:     turns,
		CreatedAt: res.CreatedAt,
		UpdatedAt: res.UpdatedAt,
	}
}

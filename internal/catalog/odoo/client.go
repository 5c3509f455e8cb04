package odoo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/valyala/fasthttp"
)

type Config struct {
	URL     string
	DB      string
	UID     int64
	APIKey  string
	Timeout time.Duration
}

// Record is one row as returned by read/search_read.
type Record map[string]any

// Domain is a list of [field, operator, value] conditions joined with AND.
type Domain [][]any

func Cond(field, op string, value any) []any {
	return []any{field, op, value}
}

// Client calls execute_kw over the JSON-RPC endpoint. It assumes an already
// provisioned uid/api key pair.
type Client struct {
	cfg  Config
	http *fasthttp.Client
	seq  atomic.Int64
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			Name:         "omnipos-catalog-sync",
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		},
	}
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is an application level error reported by the remote system.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

func (e *RPCError) Error() string {
	if e.Data.Message != "" {
		return fmt.Sprintf("remote rpc error %d: %s: %s", e.Code, e.Data.Name, e.Data.Message)
	}
	return fmt.Sprintf("remote rpc error %d: %s", e.Code, e.Message)
}

// ExecuteKw invokes method on model and decodes the result into out.
func (c *Client) ExecuteKw(ctx context.Context, modelName, method string, args []any, kwargs map[string]any, out any) error {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params: rpcParams{
			Service: "object",
			Method:  "execute_kw",
			Args:    []any{c.cfg.DB, c.cfg.UID, c.cfg.APIKey, modelName, method, args, kwargs},
		},
		ID: c.seq.Add(1),
	})
	if err != nil {
		return fmt.Errorf("encode %s.%s: %w", modelName, method, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.URL + "/jsonrpc")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("%w: %s.%s: %v", model.ErrTransientRead, modelName, method, err)
	}

	status := resp.StatusCode()
	if status >= 500 || status == fasthttp.StatusTooManyRequests {
		return fmt.Errorf("%w: %s.%s: http status %d", model.ErrTransientRead, modelName, method, status)
	}
	if status != fasthttp.StatusOK {
		return fmt.Errorf("%s.%s: http status %d", modelName, method, status)
	}

	var rpc rpcResponse
	if err := json.Unmarshal(resp.Body(), &rpc); err != nil {
		return fmt.Errorf("%w: %s.%s: decode response: %v", model.ErrTransientRead, modelName, method, err)
	}
	if rpc.Error != nil {
		return fmt.Errorf("%s.%s: %w", modelName, method, rpc.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpc.Result, out); err != nil {
		return fmt.Errorf("%s.%s: decode result: %w", modelName, method, err)
	}
	return nil
}

func (c *Client) Read(ctx context.Context, modelName string, ids []int64, fields []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []Record
	err := c.ExecuteKw(ctx, modelName, "read", []any{ids}, map[string]any{"fields": fields}, &out)
	return out, err
}

func (c *Client) Search(ctx context.Context, modelName string, domain Domain) ([]int64, error) {
	var out []int64
	err := c.ExecuteKw(ctx, modelName, "search", []any{nonNil(domain)}, nil, &out)
	return out, err
}

func (c *Client) SearchRead(ctx context.Context, modelName string, domain Domain, fields []string, limit, offset int) ([]Record, error) {
	kwargs := map[string]any{
		"fields": fields,
		"offset": offset,
		"order":  "id asc",
	}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	var out []Record
	err := c.ExecuteKw(ctx, modelName, "search_read", []any{nonNil(domain)}, kwargs, &out)
	return out, err
}

func nonNil(d Domain) Domain {
	if d == nil {
		return Domain{}
	}
	return d
}

package rpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/neuraphage/engram/internal/compact"
	"github.com/neuraphage/engram/internal/debug"
	"github.com/neuraphage/engram/internal/session"
	"github.com/neuraphage/engram/internal/types"
)

// Client is a session.Handle that forwards every call over a Unix domain
// socket connection to a Server. All calls are serialized behind mu, same
// as a direct session.Session, since the wire protocol is one
// request-then-response pair per line with no pipelining.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	seq     int
}

var _ session.Handle = (*Client)(nil)

// TryConnect dials socketPath with a short timeout, returning (nil, nil) if
// no daemon is listening there rather than an error — mirroring the
// "probe, don't fail" discovery pattern a daemon-aware caller uses to fall
// back to a direct session.Open.
func TryConnect(socketPath string) (*Client, error) {
	return TryConnectWithTimeout(socketPath, 200*time.Millisecond)
}

// TryConnectWithTimeout is TryConnect with an explicit dial timeout.
func TryConnectWithTimeout(socketPath string, dialTimeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		debug.Logf("rpc: dial %s failed: %v", socketPath, err)
		return nil, nil
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn), timeout: 5 * time.Second}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) nextRequestID() string {
	c.seq++
	return fmt.Sprintf("req-%d", c.seq)
}

func (c *Client) call(op string, args interface{}) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return Response{}, fmt.Errorf("marshaling %s args: %w", op, err)
		}
		raw = b
	}

	req := Request{Operation: op, Args: raw, RequestID: c.nextRequestID()}
	if c.timeout > 0 {
		req.DeadlineMS = time.Now().Add(c.timeout).UnixMilli()
	}
	line, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}
	line = append(line, '\n')

	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return Response{}, fmt.Errorf("%w: %v", types.ErrIO, err)
		}
	}

	if _, err := c.conn.Write(line); err != nil {
		return Response{}, fmt.Errorf("%w: writing request: %v", types.ErrDaemonUnreachable, err)
	}

	respLine, err := c.reader.ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("%w: reading response: %v", types.ErrDaemonUnreachable, err)
	}

	var resp Response
	if err := json.Unmarshal(respLine, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: unmarshaling response: %v", types.ErrIO, err)
	}
	if !resp.Success {
		if sentinel := types.SentinelForClass(resp.Code); sentinel != nil {
			return resp, fmt.Errorf("%w: %s", sentinel, resp.Error)
		}
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

func decodeInto(resp Response, v interface{}) error {
	if len(resp.Data) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Data, v)
}

// Ping round-trips OpPing to verify the daemon is alive and responsive.
func (c *Client) Ping() error {
	_, err := c.call(OpPing, nil)
	return err
}

func (c *Client) Create(title string, priority int, labels []string, description string) (*types.Item, error) {
	resp, err := c.call(OpCreate, CreateArgs{Title: title, Priority: priority, Labels: labels, Description: description})
	if err != nil {
		return nil, err
	}
	var it types.Item
	if err := decodeInto(resp, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) Get(id string) (*types.Item, error) {
	resp, err := c.call(OpGet, IDArgs{ID: id})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, nil
	}
	var it types.Item
	if err := decodeInto(resp, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) Update(id string, fields session.UpdateFields) (*types.Item, error) {
	args := UpdateArgs{ID: id, Title: fields.Title, Description: fields.Description, Priority: fields.Priority}
	if fields.Labels != nil {
		args.Labels = fields.Labels
		args.LabelsSet = true
	}
	resp, err := c.call(OpUpdate, args)
	if err != nil {
		return nil, err
	}
	var it types.Item
	if err := decodeInto(resp, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) SetStatus(id string, status types.Status) (*types.Item, error) {
	resp, err := c.call(OpSetStatus, SetStatusArgs{ID: id, Status: string(status)})
	if err != nil {
		return nil, err
	}
	var it types.Item
	if err := decodeInto(resp, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) CloseItem(id string, reason string) (*types.Item, error) {
	resp, err := c.call(OpClose, CloseArgs{ID: id, Reason: reason})
	if err != nil {
		return nil, err
	}
	var it types.Item
	if err := decodeInto(resp, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) Reopen(id string) (*types.Item, error) {
	resp, err := c.call(OpReopen, IDArgs{ID: id})
	if err != nil {
		return nil, err
	}
	var it types.Item
	if err := decodeInto(resp, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) AddEdge(from, to string, kind types.EdgeKind) (*types.Edge, error) {
	resp, err := c.call(OpAddEdge, EdgeArgs{From: from, To: to, Kind: string(kind)})
	if err != nil {
		return nil, err
	}
	var e types.Edge
	if err := decodeInto(resp, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) RemoveEdge(from, to string, kind types.EdgeKind) error {
	_, err := c.call(OpRemoveEdge, EdgeArgs{From: from, To: to, Kind: string(kind)})
	return err
}

func (c *Client) List(filter types.ListFilter) ([]*types.Item, error) {
	statuses := make([]string, 0, len(filter.Status))
	for _, s := range filter.Status {
		statuses = append(statuses, string(s))
	}
	resp, err := c.call(OpList, ListArgs{
		Status: statuses, MinPriority: filter.MinPriority, MaxPriority: filter.MaxPriority,
		Label: filter.Label, TitleContains: filter.TitleContains, Limit: filter.Limit, Offset: filter.Offset,
	})
	if err != nil {
		return nil, err
	}
	var items []*types.Item
	if err := decodeInto(resp, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) Ready() ([]*types.Item, error)   { return c.listLike(OpReady) }
func (c *Client) Blocked() ([]*types.Item, error) { return c.listLike(OpBlocked) }

func (c *Client) listLike(op string) ([]*types.Item, error) {
	resp, err := c.call(op, nil)
	if err != nil {
		return nil, err
	}
	var items []*types.Item
	if err := decodeInto(resp, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) idList(op, id string) ([]string, error) {
	resp, err := c.call(op, IDArgs{ID: id})
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := decodeInto(resp, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *Client) Children(id string) ([]string, error)  { return c.idList(OpChildren, id) }
func (c *Client) Parents(id string) ([]string, error)   { return c.idList(OpParents, id) }
func (c *Client) Blockers(id string) ([]string, error)  { return c.idList(OpBlockers, id) }
func (c *Client) BlockedBy(id string) ([]string, error) { return c.idList(OpBlockedBy, id) }

func (c *Client) Compact(cfg types.CompactConfig) (compact.Result, error) {
	resp, err := c.call(OpCompact, CompactArgs{
		OlderThanDays: cfg.OlderThanDays, DropDescription: cfg.DropDescription, MaxDescriptionLen: cfg.MaxDescriptionLen,
	})
	if err != nil {
		return compact.Result{}, err
	}
	var res compact.Result
	if err := decodeInto(resp, &res); err != nil {
		return compact.Result{}, err
	}
	return res, nil
}

func (c *Client) Vacuum() error {
	_, err := c.call(OpVacuum, nil)
	return err
}

// Shutdown releases this client's hold on the connection. Unlike
// session.Session.Shutdown (which owns the store and must release its
// lock), a Client is a guest of a daemon that many other clients may be
// using concurrently, so Shutdown here just disconnects — it does not
// tell the daemon to stop. Use RequestDaemonShutdown for that.
func (c *Client) Shutdown() error {
	return c.Close()
}

// RequestDaemonShutdown asks the daemon on the other end of this
// connection to stop serving entirely (`engram daemon stop`).
func (c *Client) RequestDaemonShutdown() error {
	_, err := c.call(OpShutdown, nil)
	_ = c.Close()
	return err
}

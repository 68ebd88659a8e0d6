package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/neuraphage/engram/internal/debug"
	"github.com/neuraphage/engram/internal/session"
	"github.com/neuraphage/engram/internal/types"
)

// Server accepts connections on a listener, serving each connection on its
// own goroutine, and runs every request from every connection one at a time
// under exec, so operations against the underlying session.Handle never
// interleave. Requests waiting for exec are not guaranteed to run in strict
// arrival order.
type Server struct {
	handle session.Handle

	// exec serializes request execution across all connections.
	exec sync.Mutex

	mu      sync.Mutex
	closing bool
	ln      net.Listener
}

// NewServer wraps handle for RPC dispatch.
func NewServer(handle session.Handle) *Server {
	return &Server{handle: handle}
}

// Serve accepts connections on ln until it returns an error (typically
// because ln was closed by the caller during shutdown, or self-closed
// after a client dispatches OpShutdown).
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// Stop marks the server as shutting down and closes its listener so
// Serve's Accept unblocks and returns.
func (s *Server) Stop() {
	s.mu.Lock()
	s.closing = true
	ln := s.ln
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Success: false, Error: fmt.Sprintf("malformed request: %v", err)})
			continue
		}

		s.exec.Lock()
		resp := s.dispatch(req)
		s.exec.Unlock()
		resp.RequestID = req.RequestID
		s.writeResponse(conn, resp)

		if req.Operation == OpShutdown {
			s.Stop()
			return
		}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	line, err := json.Marshal(resp)
	if err != nil {
		debug.Logf("rpc: failed to marshal response: %v", err)
		return
	}
	line = append(line, '\n')
	if _, err := conn.Write(line); err != nil {
		debug.Logf("rpc: failed to write response: %v", err)
	}
}

// dispatch runs one request to completion against s.handle. Its caller
// holds s.exec, so no other request runs while this one does; dispatch
// itself only decodes the request and re-encodes the result.
func (s *Server) dispatch(req Request) Response {
	if req.DeadlineMS > 0 && time.Now().UnixMilli() > req.DeadlineMS {
		// The underlying handle has no per-call cancellation, so a deadline
		// only bounds how long the caller is willing to wait for dispatch to
		// even begin, not the call itself: a request already past its
		// absolute deadline once it holds s.exec is answered Timeout
		// without being executed, per spec §5.
		return errResponse(fmt.Errorf("%w: request missed its deadline", types.ErrTimeout))
	}

	switch req.Operation {
	case OpPing:
		return Response{Success: true}
	case OpCreate:
		var a CreateArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		it, err := s.handle.Create(a.Title, a.Priority, a.Labels, a.Description)
		return dataResponse(it, err)
	case OpGet:
		var a IDArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		it, err := s.handle.Get(a.ID)
		return dataResponse(it, err)
	case OpUpdate:
		var a UpdateArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		fields := session.UpdateFields{Title: a.Title, Description: a.Description, Priority: a.Priority}
		if a.LabelsSet {
			labels := a.Labels
			if labels == nil {
				labels = []string{}
			}
			fields.Labels = labels
		}
		it, err := s.handle.Update(a.ID, fields)
		return dataResponse(it, err)
	case OpSetStatus:
		var a SetStatusArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		it, err := s.handle.SetStatus(a.ID, types.Status(a.Status))
		return dataResponse(it, err)
	case OpClose:
		var a CloseArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		it, err := s.handle.CloseItem(a.ID, a.Reason)
		return dataResponse(it, err)
	case OpReopen:
		var a IDArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		it, err := s.handle.Reopen(a.ID)
		return dataResponse(it, err)
	case OpAddEdge:
		var a EdgeArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		e, err := s.handle.AddEdge(a.From, a.To, types.EdgeKind(a.Kind))
		return dataResponse(e, err)
	case OpRemoveEdge:
		var a EdgeArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		err := s.handle.RemoveEdge(a.From, a.To, types.EdgeKind(a.Kind))
		return dataResponse(struct{}{}, err)
	case OpList:
		var a ListArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		items, err := s.handle.List(toListFilter(a))
		return dataResponse(items, err)
	case OpReady:
		items, err := s.handle.Ready()
		return dataResponse(items, err)
	case OpBlocked:
		items, err := s.handle.Blocked()
		return dataResponse(items, err)
	case OpChildren:
		var a IDArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		ids, err := s.handle.Children(a.ID)
		return dataResponse(ids, err)
	case OpParents:
		var a IDArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		ids, err := s.handle.Parents(a.ID)
		return dataResponse(ids, err)
	case OpBlockers:
		var a IDArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		ids, err := s.handle.Blockers(a.ID)
		return dataResponse(ids, err)
	case OpBlockedBy:
		var a IDArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		ids, err := s.handle.BlockedBy(a.ID)
		return dataResponse(ids, err)
	case OpCompact:
		var a CompactArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return errResponse(err)
		}
		res, err := s.handle.Compact(types.CompactConfig{
			OlderThanDays:     a.OlderThanDays,
			DropDescription:   a.DropDescription,
			MaxDescriptionLen: a.MaxDescriptionLen,
		})
		return dataResponse(res, err)
	case OpVacuum:
		err := s.handle.Vacuum()
		return dataResponse(struct{}{}, err)
	case OpShutdown:
		err := s.handle.Shutdown()
		return dataResponse(struct{}{}, err)
	default:
		return errResponse(fmt.Errorf("unknown operation: %s", req.Operation))
	}
}

func toListFilter(a ListArgs) types.ListFilter {
	statuses := make([]types.Status, 0, len(a.Status))
	for _, s := range a.Status {
		statuses = append(statuses, types.Status(s))
	}
	return types.ListFilter{
		Status:        statuses,
		MinPriority:   a.MinPriority,
		MaxPriority:   a.MaxPriority,
		Label:         a.Label,
		TitleContains: a.TitleContains,
		Limit:         a.Limit,
		Offset:        a.Offset,
	}
}

func dataResponse(v interface{}, err error) Response {
	if err != nil {
		return errResponse(err)
	}
	data, merr := json.Marshal(v)
	if merr != nil {
		return errResponse(merr)
	}
	return Response{Success: true, Data: data}
}

func errResponse(err error) Response {
	return Response{Success: false, Error: err.Error(), Code: types.ErrorClass(err)}
}

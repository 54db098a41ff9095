package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Request is a remote call described by method, endpoint (relative to /api),
// JSON body and query parameters.
type Request struct {
	Method   string
	Endpoint string
	Body     json.RawMessage
	Params   map[string]string
}

// Idempotent reports whether replaying the request twice has the same effect
// as replaying it once.
func (r Request) Idempotent() bool {
	return r.Method == http.MethodDelete || r.Method == http.MethodPut
}

// PendingChange is a remote mutation recorded locally for later replay.
type PendingChange struct {
	ID        string            `json:"id"`
	Endpoint  string            `json:"endpoint"`
	Method    string            `json:"method"`
	Body      json.RawMessage   `json:"body,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Request returns the remote call the change replays.
func (c PendingChange) Request() Request {
	return Request{Method: c.Method, Endpoint: c.Endpoint, Body: c.Body, Params: c.Params}
}

// NewPendingChange records op for deferred replay. ID and CreatedAt are
// assigned by the queue.
func NewPendingChange(op Operation) PendingChange {
	r := op.Request()
	return PendingChange{Endpoint: r.Endpoint, Method: r.Method, Body: r.Body, Params: r.Params}
}

// OpKind names a replayable mutation.
type OpKind string

// Known operations.
const (
	OpAddNutritionEntry    OpKind = "AddNutritionEntry"
	OpDeleteNutritionEntry OpKind = "DeleteNutritionEntry"
	OpAddFitnessEntry      OpKind = "AddFitnessEntry"
	OpDeleteFitnessEntry   OpKind = "DeleteFitnessEntry"
	OpAddBudgetEntry       OpKind = "AddBudgetEntry"
	OpDeleteBudgetEntry    OpKind = "DeleteBudgetEntry"
	OpCreateGoal           OpKind = "CreateGoal"
	OpUpdateGoal           OpKind = "UpdateGoal"
	OpDeleteGoal           OpKind = "DeleteGoal"
)

// Operation is the closed set of mutations the remote API accepts. Every
// write, immediate or queued, is expressed as one.
type Operation interface {
	Kind() OpKind
	Request() Request
}

// AddNutritionEntry creates a nutrition entry.
type AddNutritionEntry struct{ Entry NutritionEntry }

// DeleteNutritionEntry deletes a nutrition entry of the given day.
type DeleteNutritionEntry struct{ ID, Date string }

// AddFitnessEntry creates a fitness entry.
type AddFitnessEntry struct{ Entry FitnessEntry }

// DeleteFitnessEntry deletes a fitness entry of the given week.
type DeleteFitnessEntry struct{ ID, Week string }

// AddBudgetEntry creates a budget entry.
type AddBudgetEntry struct{ Entry BudgetEntry }

// DeleteBudgetEntry deletes a budget entry of the given week.
type DeleteBudgetEntry struct{ ID, Week string }

// CreateGoal creates a goal.
type CreateGoal struct{ Goal Goal }

// UpdateGoal replaces a goal.
type UpdateGoal struct{ Goal Goal }

// DeleteGoal deletes a goal.
type DeleteGoal struct{ ID string }

func (AddNutritionEntry) Kind() OpKind    { return OpAddNutritionEntry }
func (DeleteNutritionEntry) Kind() OpKind { return OpDeleteNutritionEntry }
func (AddFitnessEntry) Kind() OpKind      { return OpAddFitnessEntry }
func (DeleteFitnessEntry) Kind() OpKind   { return OpDeleteFitnessEntry }
func (AddBudgetEntry) Kind() OpKind       { return OpAddBudgetEntry }
func (DeleteBudgetEntry) Kind() OpKind    { return OpDeleteBudgetEntry }
func (CreateGoal) Kind() OpKind           { return OpCreateGoal }
func (UpdateGoal) Kind() OpKind           { return OpUpdateGoal }
func (DeleteGoal) Kind() OpKind           { return OpDeleteGoal }

// Remote ids are assigned by the server, so creates never send one.

func (o AddNutritionEntry) Request() Request {
	e := o.Entry
	e.ID = ""
	return Request{Method: http.MethodPost, Endpoint: "/nutrition", Body: mustJSON(e)}
}

func (o DeleteNutritionEntry) Request() Request {
	return Request{Method: http.MethodDelete, Endpoint: "/nutrition/" + o.ID, Params: params("date", o.Date)}
}

func (o AddFitnessEntry) Request() Request {
	e := o.Entry
	e.ID = ""
	return Request{Method: http.MethodPost, Endpoint: "/fitness", Body: mustJSON(e)}
}

func (o DeleteFitnessEntry) Request() Request {
	return Request{Method: http.MethodDelete, Endpoint: "/fitness/" + o.ID, Params: params("week", o.Week)}
}

func (o AddBudgetEntry) Request() Request {
	e := o.Entry
	e.ID = ""
	return Request{Method: http.MethodPost, Endpoint: "/budget", Body: mustJSON(e)}
}

func (o DeleteBudgetEntry) Request() Request {
	return Request{Method: http.MethodDelete, Endpoint: "/budget/" + o.ID, Params: params("week", o.Week)}
}

func (o CreateGoal) Request() Request {
	g := o.Goal
	g.ID = ""
	return Request{Method: http.MethodPost, Endpoint: "/goals", Body: mustJSON(g)}
}

func (o UpdateGoal) Request() Request {
	return Request{Method: http.MethodPut, Endpoint: "/goals/" + o.Goal.ID, Body: mustJSON(o.Goal)}
}

func (o DeleteGoal) Request() Request {
	return Request{Method: http.MethodDelete, Endpoint: "/goals/" + o.ID}
}

// DecodeOperation recovers the typed operation a pending change was recorded
// from. Changes that do not match a known operation return an error wrapping
// ErrUnknownOperation and can never be replayed.
func DecodeOperation(c PendingChange) (Operation, error) {
	parts := strings.Split(strings.Trim(c.Endpoint, "/"), "/")
	if len(parts) == 0 || len(parts) > 2 || parts[0] == "" {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownOperation, c.Method, c.Endpoint)
	}
	resource, id := parts[0], ""
	if len(parts) == 2 {
		id = parts[1]
		if id == "" {
			return nil, fmt.Errorf("%w: %s %s", ErrUnknownOperation, c.Method, c.Endpoint)
		}
	}
	p := c.Params

	var (
		op  Operation
		err error
	)
	switch {
	case resource == "nutrition" && id == "" && c.Method == http.MethodPost:
		var o AddNutritionEntry
		err = decodeBody(c.Body, &o.Entry)
		op = o
	case resource == "nutrition" && id != "" && c.Method == http.MethodDelete:
		op = DeleteNutritionEntry{ID: id, Date: p["date"]}
	case resource == "fitness" && id == "" && c.Method == http.MethodPost:
		var o AddFitnessEntry
		err = decodeBody(c.Body, &o.Entry)
		op = o
	case resource == "fitness" && id != "" && c.Method == http.MethodDelete:
		op = DeleteFitnessEntry{ID: id, Week: p["week"]}
	case resource == "budget" && id == "" && c.Method == http.MethodPost:
		var o AddBudgetEntry
		err = decodeBody(c.Body, &o.Entry)
		op = o
	case resource == "budget" && id != "" && c.Method == http.MethodDelete:
		op = DeleteBudgetEntry{ID: id, Week: p["week"]}
	case resource == "goals" && id == "" && c.Method == http.MethodPost:
		var o CreateGoal
		err = decodeBody(c.Body, &o.Goal)
		op = o
	case resource == "goals" && id != "" && c.Method == http.MethodPut:
		var o UpdateGoal
		err = decodeBody(c.Body, &o.Goal)
		o.Goal.ID = id
		op = o
	case resource == "goals" && id != "" && c.Method == http.MethodDelete:
		op = DeleteGoal{ID: id}
	default:
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownOperation, c.Method, c.Endpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnknownOperation, c.Method, c.Endpoint, err)
	}
	return op, nil
}

func decodeBody(body json.RawMessage, dst any) error {
	if len(body) == 0 {
		return fmt.Errorf("missing body")
	}
	return json.Unmarshal(body, dst)
}

func params(key, value string) map[string]string {
	if value == "" {
		return nil
	}
	return map[string]string{key: value}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal %T: %v", v, err))
	}
	return b
}

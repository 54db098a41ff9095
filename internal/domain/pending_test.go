package domain_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"lifesync/internal/domain"
)

func TestOperationsRoundTripThroughPendingChange(t *testing.T) {
	ops := []domain.Operation{
		domain.AddNutritionEntry{Entry: domain.NutritionEntry{Date: "2026-01-05", Name: "oats", Calories: 350}},
		domain.DeleteNutritionEntry{ID: "n1", Date: "2026-01-05"},
		domain.AddFitnessEntry{Entry: domain.FitnessEntry{Date: "2026-01-05", Type: "run", Value: 5}},
		domain.DeleteFitnessEntry{ID: "f1", Week: "2026-W02"},
		domain.AddBudgetEntry{Entry: domain.BudgetEntry{Amount: 12, Category: "Food"}},
		domain.DeleteBudgetEntry{ID: "b1", Week: "2026-W02"},
		domain.CreateGoal{Goal: domain.Goal{Title: "Run 20km", Target: 20}},
		domain.UpdateGoal{Goal: domain.Goal{ID: "g1", Title: "Run 25km", Target: 25}},
		domain.DeleteGoal{ID: "g1"},
	}
	for _, op := range ops {
		t.Run(string(op.Kind()), func(t *testing.T) {
			pc := domain.NewPendingChange(op)
			got, err := domain.DecodeOperation(pc)
			if err != nil {
				t.Fatalf("DecodeOperation: %v", err)
			}
			if got.Kind() != op.Kind() {
				t.Fatalf("kind = %s; want %s", got.Kind(), op.Kind())
			}
			if !reflect.DeepEqual(got.Request(), op.Request()) {
				t.Errorf("request = %+v; want %+v", got.Request(), op.Request())
			}
		})
	}
}

func TestCreatesNeverSendLocalID(t *testing.T) {
	r := domain.AddBudgetEntry{Entry: domain.BudgetEntry{ID: "local-1", Amount: 3}}.Request()
	var body map[string]any
	if err := json.Unmarshal(r.Body, &body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["id"]; ok {
		t.Errorf("body carries id: %s", r.Body)
	}
}

func TestDecodeOperation_BudgetPostFromRawChange(t *testing.T) {
	pc := domain.PendingChange{
		Endpoint: "/budget",
		Method:   http.MethodPost,
		Body:     json.RawMessage(`{"amount":12,"category":"Food"}`),
	}
	op, err := domain.DecodeOperation(pc)
	if err != nil {
		t.Fatalf("DecodeOperation: %v", err)
	}
	add, ok := op.(domain.AddBudgetEntry)
	if !ok {
		t.Fatalf("op = %T; want AddBudgetEntry", op)
	}
	if add.Entry.Amount != 12 || add.Entry.Category != "Food" {
		t.Errorf("entry = %+v", add.Entry)
	}
}

func TestDecodeOperation_Unknown(t *testing.T) {
	tests := []domain.PendingChange{
		{Endpoint: "/chat", Method: http.MethodPost, Body: json.RawMessage(`{}`)},
		{Endpoint: "/budget", Method: http.MethodPut, Body: json.RawMessage(`{}`)},
		{Endpoint: "/budget/1/extra", Method: http.MethodDelete},
		{Endpoint: "/", Method: http.MethodGet},
		{Endpoint: "/budget", Method: http.MethodPost},
		{Endpoint: "/fitness", Method: http.MethodPost, Body: json.RawMessage(`not json`)},
	}
	for _, pc := range tests {
		if _, err := domain.DecodeOperation(pc); !errors.Is(err, domain.ErrUnknownOperation) {
			t.Errorf("DecodeOperation(%s %s) err = %v; want ErrUnknownOperation", pc.Method, pc.Endpoint, err)
		}
	}
}

func TestRequestIdempotent(t *testing.T) {
	if domain.NewPendingChange(domain.AddFitnessEntry{}).Request().Idempotent() {
		t.Error("POST must not be idempotent")
	}
	if !domain.NewPendingChange(domain.DeleteGoal{ID: "x"}).Request().Idempotent() {
		t.Error("DELETE must be idempotent")
	}
	if !domain.NewPendingChange(domain.UpdateGoal{Goal: domain.Goal{ID: "x"}}).Request().Idempotent() {
		t.Error("PUT must be idempotent")
	}
}

func TestRemoteErrorClassification(t *testing.T) {
	notFound := &domain.RemoteError{Status: http.StatusNotFound, Message: "entry gone"}
	if !domain.IsClientError(notFound) || domain.IsServerError(notFound) {
		t.Error("404 must be a client error")
	}
	wrapped := errors.Join(errors.New("replay"), &domain.RemoteError{Status: http.StatusBadGateway})
	if !domain.IsServerError(wrapped) || domain.IsClientError(wrapped) {
		t.Error("502 must be a server error")
	}
	if domain.IsClientError(errors.New("dial tcp: refused")) {
		t.Error("transport error is not a client error")
	}
	if notFound.Error() != "remote: 404 Not Found: entry gone" {
		t.Errorf("Error() = %q", notFound.Error())
	}
}

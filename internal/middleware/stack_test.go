package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-excon/excon/internal/middleware"
	"github.com/go-excon/excon/internal/model"
)

type recordingMiddleware struct {
	name           string
	trace          *[]string
	shortCircuit   bool
	requestCallErr error
}

func (m *recordingMiddleware) RequestCall(ctx context.Context, d *model.Datum) error {
	*m.trace = append(*m.trace, "req:"+m.name)
	if m.requestCallErr != nil {
		return m.requestCallErr
	}
	if m.shortCircuit {
		d.Response = &model.Response{Status: 200}
	}
	return nil
}

func (m *recordingMiddleware) ResponseCall(ctx context.Context, d *model.Datum) error {
	*m.trace = append(*m.trace, "resp:"+m.name)
	return nil
}

type recordingTerminal struct{ trace *[]string }

func (t *recordingTerminal) RequestCall(ctx context.Context, d *model.Datum) error {
	*t.trace = append(*t.trace, "terminal")
	return nil
}

func TestDispatchOrderWithoutShortCircuit(t *testing.T) {
	var trace []string
	stack := []model.Middleware{
		&recordingMiddleware{name: "a", trace: &trace},
		&recordingMiddleware{name: "b", trace: &trace},
	}
	d := &model.Datum{}

	invoked, err := middleware.DispatchRequest(context.Background(), stack, &recordingTerminal{trace: &trace}, d)
	if err != nil {
		t.Fatal(err)
	}
	if invoked != 2 {
		t.Errorf("invoked = %d, want 2", invoked)
	}

	if err := middleware.DispatchResponse(context.Background(), stack, invoked, d); err != nil {
		t.Fatal(err)
	}

	want := []string{"req:a", "req:b", "terminal", "resp:b", "resp:a"}
	if !equal(trace, want) {
		t.Errorf("trace = %v, want %v", trace, want)
	}
}

func TestDispatchShortCircuitSkipsTerminalAndBoundsResponsePhase(t *testing.T) {
	var trace []string
	stack := []model.Middleware{
		&recordingMiddleware{name: "a", trace: &trace},
		&recordingMiddleware{name: "b", trace: &trace, shortCircuit: true},
		&recordingMiddleware{name: "c", trace: &trace},
	}
	d := &model.Datum{}

	invoked, err := middleware.DispatchRequest(context.Background(), stack, &recordingTerminal{trace: &trace}, d)
	if err != nil {
		t.Fatal(err)
	}
	if invoked != 2 {
		t.Errorf("invoked = %d, want 2 (c and the terminal must not run)", invoked)
	}
	if d.Response == nil {
		t.Fatal("expected b to populate Response")
	}

	if err := middleware.DispatchResponse(context.Background(), stack, invoked, d); err != nil {
		t.Fatal(err)
	}

	want := []string{"req:a", "req:b", "resp:b", "resp:a"}
	if !equal(trace, want) {
		t.Errorf("trace = %v, want %v", trace, want)
	}
}

func TestDispatchRequestStopsOnError(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	stack := []model.Middleware{
		&recordingMiddleware{name: "a", trace: &trace, requestCallErr: boom},
		&recordingMiddleware{name: "b", trace: &trace},
	}
	invoked, err := middleware.DispatchRequest(context.Background(), stack, &recordingTerminal{trace: &trace}, &model.Datum{})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if invoked != 1 {
		t.Errorf("invoked = %d, want 1", invoked)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

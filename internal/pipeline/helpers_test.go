package pipeline

import (
	"context"
	"sync"
	"time"
)

type fakeTool struct {
	name  string
	raw   string
	err   error
	delay time.Duration

	mu     sync.Mutex
	inputs []string
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Run(ctx context.Context, input string) (string, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.raw, nil
}

func (f *fakeTool) lastInput() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return ""
	}
	return f.inputs[len(f.inputs)-1]
}

// barrierTool only completes once its peer has started too.
type barrierTool struct {
	name    string
	raw     string
	started chan struct{}
	peer    chan struct{}
}

func (b *barrierTool) Name() string { return b.name }

func (b *barrierTool) Run(ctx context.Context, _ string) (string, error) {
	close(b.started)
	select {
	case <-b.peer:
		return b.raw, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

const (
	fakeNLURaw = `{
  "intent": "route_planning",
  "entities": {
    "destination": "Museo del Prado",
    "accessibility": "wheelchair",
    "timeframe": null,
    "transport_preference": null,
    "budget": null,
    "language": "es"
  },
  "confidence": 0.7,
  "status": "ok",
  "provider": "keyword"
}`
	fakeNERRaw   = `{"locations":["Prado"],"top_location":"Prado","provider":"gazetteer","model":"gazetteer","language":"es","status":"ok","count":1}`
	fakeAccRaw   = `{"destination":"Museo del Prado","accessibility_level":"full_wheelchair_access","accessibility_score":9.2,"certification":"ONCE_certified","facilities":["wheelchair_ramps","adapted_bathrooms"]}`
	fakeRouteRaw = `{"destination":"Museo del Prado","routes":[{"transport":"metro","line":"Line 2","duration":"25 min","accessibility":"full_wheelchair_access"}],"estimated_cost":"2.50€"}`
	fakeVenueRaw = `{"venue":"Museo del Prado","type":"museum","opening_hours":{"monday_saturday":"10:00-20:00"},"pricing":{"general":"15€"},"accessibility_services":{"audio_guides":"available"}}`
)

type fakeTools struct {
	nlu, ner, acc, routes, venue *fakeTool
}

func newFakeTools() *fakeTools {
	return &fakeTools{
		nlu:    &fakeTool{name: "tourism_nlu", raw: fakeNLURaw},
		ner:    &fakeTool{name: "location_ner", raw: fakeNERRaw},
		acc:    &fakeTool{name: "accessibility_analysis", raw: fakeAccRaw},
		routes: &fakeTool{name: "route_planning", raw: fakeRouteRaw},
		venue:  &fakeTool{name: "tourism_info", raw: fakeVenueRaw},
	}
}

func (f *fakeTools) set() Tools {
	return Tools{NLU: f.nlu, LocationNER: f.ner, Accessibility: f.acc, Routes: f.routes, VenueInfo: f.venue}
}

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"nostr-query/internal/relay"
	"nostr-query/internal/types"
	"nostr-query/internal/util"
)

// documentResolver is the pure last-writer-wins state machine. Events are
// observed in arrival order, which across relays is arbitrary; the winner
// is always the maximum created_at. Equal timestamps resolve
// last-processed-wins (>=): relay response order is non-deterministic, so
// ties from clock-skewed or retransmitted documents are order-dependent.
// Identical content-addressed ids make that harmless in practice; the
// comparison is deliberate and covered by tests.
type documentResolver struct {
	winner types.Event
	found  bool
	diags  map[string]*types.RelayDiagnostic
}

func newDocumentResolver(endpoints []string) *documentResolver {
	diags := make(map[string]*types.RelayDiagnostic, len(endpoints))
	for _, url := range endpoints {
		diags[url] = &types.RelayDiagnostic{Relay: url}
	}
	return &documentResolver{diags: diags}
}

func (r *documentResolver) observe(evt types.Event) {
	if !r.found || evt.CreatedAt >= r.winner.CreatedAt {
		r.winner = evt
		r.found = true
	}
	for _, url := range evt.RelaysSeen {
		d := r.diags[url]
		if d == nil {
			d = &types.RelayDiagnostic{Relay: url}
			r.diags[url] = d
		}
		if evt.CreatedAt >= d.CreatedAt {
			d.CreatedAt = evt.CreatedAt
			d.TagCount = len(evt.Tags)
		}
	}
}

func (r *documentResolver) markResponded(statuses []relay.EndpointStatus) {
	for _, st := range statuses {
		d := r.diags[st.URL]
		if d == nil {
			d = &types.RelayDiagnostic{Relay: st.URL}
			r.diags[st.URL] = d
		}
		d.Responded = st.Err == nil
	}
}

func (r *documentResolver) result() *types.ResolvedDocument {
	if !r.found {
		return nil
	}
	doc := &types.ResolvedDocument{
		Tags:      r.winner.Tags,
		CreatedAt: r.winner.CreatedAt,
	}
	for _, url := range util.SortedCopy(util.MapKeys(r.diags)) {
		doc.Diagnostics = append(doc.Diagnostics, *r.diags[url])
	}
	return doc
}

// ResolveLatestDocument resolves a single logical per-author document
// (e.g. a mutable follow list) that may exist at different revisions on
// different relays. Wait-for-all fan-out; the winner's tags are the
// resolved body. Returns nil when no relay produced a revision before the
// timeout — an expected outcome, not an error.
func (e *Engine) ResolveLatestDocument(ctx context.Context, relays []string, author string, kind int) (*types.ResolvedDocument, error) {
	if author == "" {
		return nil, fmt.Errorf("%w: author", ErrMissingTarget)
	}
	if len(relays) == 0 {
		return nil, nil
	}

	filter := types.Filter{
		Authors: []string{author},
		Kinds:   []int{kind},
		Limit:   4,
	}

	r := newDocumentResolver(relays)
	res, err := e.query(ctx, relays, filter, relay.WaitAll, func(evt types.Event) bool {
		if evt.PubKey != author || evt.Kind != kind {
			return false
		}
		r.observe(evt)
		return true
	})
	if err != nil {
		return nil, err
	}
	r.markResponded(res.Statuses)

	doc := r.result()
	if doc == nil {
		slog.Debug("document not found on any relay",
			"author", util.ShortID(author), "kind", kind, "relays", len(relays))
		return nil, nil
	}
	slog.Debug("document resolved",
		"author", util.ShortID(author), "kind", kind,
		"created_at", doc.CreatedAt, "tags", len(doc.Tags))
	return doc, nil
}

// ResolveContacts resolves the author's kind 3 contact list and returns
// the followed pubkeys (p tags) of the winning revision.
func (e *Engine) ResolveContacts(ctx context.Context, relays []string, author string) ([]string, error) {
	doc, err := e.ResolveLatestDocument(ctx, relays, author, types.KindContacts)
	if err != nil || doc == nil {
		return nil, err
	}
	var contacts []string
	for _, tag := range doc.Tags {
		if len(tag) >= 2 && tag[0] == "p" {
			contacts = append(contacts, tag[1])
		}
	}
	return contacts, nil
}

// ResolveRelayList resolves the author's kind 10002 relay list, split by
// read/write marker. Tags without a marker count as both.
func (e *Engine) ResolveRelayList(ctx context.Context, relays []string, author string) (*types.RelayList, error) {
	doc, err := e.ResolveLatestDocument(ctx, relays, author, types.KindRelayList)
	if err != nil || doc == nil {
		return nil, err
	}
	list := &types.RelayList{}
	for _, tag := range doc.Tags {
		if len(tag) < 2 || tag[0] != "r" {
			continue
		}
		marker := ""
		if len(tag) >= 3 {
			marker = tag[2]
		}
		switch marker {
		case "read":
			list.Read = append(list.Read, tag[1])
		case "write":
			list.Write = append(list.Write, tag[1])
		default:
			list.Read = append(list.Read, tag[1])
			list.Write = append(list.Write, tag[1])
		}
	}
	return list, nil
}
